package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCanReport(t *testing.T) {
	base := time.Date(2025, 6, 1, 21, 0, 0, 0, time.UTC)
	ada := IdentityKey("email:ada@example.com")

	reportBy := func(id string, ts time.Time, email string) Report {
		return Report{ID: id, Type: OutageOut, Timestamp: ts, LightID: "light-1", ReporterEmail: email}
	}

	t.Run("unresolvable identity never denies", func(t *testing.T) {
		history := []Report{reportBy("r-1", base, "ada@example.com")}
		assert.True(t, CanReport("light-1", IdentityNone, history, time.Time{}))
	})

	t.Run("no prior report allows", func(t *testing.T) {
		assert.True(t, CanReport("light-1", ada, nil, time.Time{}))
	})

	t.Run("open-cycle report denies", func(t *testing.T) {
		history := []Report{reportBy("r-1", base, "ada@example.com")}
		assert.False(t, CanReport("light-1", ada, history, time.Time{}))
	})

	t.Run("fix after the report allows again", func(t *testing.T) {
		history := []Report{reportBy("r-1", base, "ada@example.com")}
		assert.True(t, CanReport("light-1", ada, history, base.Add(time.Hour)))
	})

	t.Run("report after the fix denies again", func(t *testing.T) {
		history := []Report{
			reportBy("r-1", base, "ada@example.com"),
			reportBy("r-2", base.Add(2*time.Hour), "ada@example.com"),
		}
		assert.False(t, CanReport("light-1", ada, history, base.Add(time.Hour)))
	})

	t.Run("other lights do not count", func(t *testing.T) {
		history := []Report{reportBy("r-1", base, "ada@example.com")}
		assert.True(t, CanReport("light-2", ada, history, time.Time{}))
	})

	t.Run("other identities do not count", func(t *testing.T) {
		history := []Report{reportBy("r-1", base, "grace@example.com")}
		assert.True(t, CanReport("light-1", ada, history, time.Time{}))
	})

	t.Run("identity matches across raw formatting", func(t *testing.T) {
		history := []Report{reportBy("r-1", base, " Ada@Example.COM ")}
		assert.False(t, CanReport("light-1", ada, history, time.Time{}))
	})
}
