// Command genmock reads a seed CSV of streetlights and outage reports and
// generates mock data fixtures: a stream of push-feed envelopes for the feed
// test suites, and the expected derived statuses produced by the actual
// engine, so fixtures can never drift from real derivation behavior.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -seed-csv data/seed/lights_and_reports.csv \
//	  -feed-out data/mock/feed_events.json \
//	  -status-out data/mock/derived_statuses.json
package main

import (
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/lumenmap/lightwatch/internal/domain"
	"github.com/lumenmap/lightwatch/internal/engine"
	"github.com/lumenmap/lightwatch/internal/observability"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	seedCSV := flag.String("seed-csv", "", "seed CSV with light and report rows")
	feedOut := flag.String("feed-out", "", "output path for the feed envelope fixture")
	statusOut := flag.String("status-out", "", "output path for the expected derived statuses")
	flag.Parse()

	if *seedCSV == "" || *feedOut == "" || *statusOut == "" {
		flag.Usage()
		return fmt.Errorf("missing required flags: -seed-csv, -feed-out, -status-out")
	}

	// Freeze the clock for reproducible output.
	domain.SetClock(clockwork.NewFakeClockAt(
		time.Date(2025, time.November, 3, 6, 0, 0, 0, time.UTC),
	))
	defer domain.SetClock(nil)

	events, err := readSeed(*seedCSV)
	if err != nil {
		return fmt.Errorf("reading %s: %w", *seedCSV, err)
	}
	log.Printf("seed: %d feed events", len(events))

	eng := engine.New(slog.New(slog.NewTextHandler(io.Discard, nil)), observability.NewMetricsForTesting())
	for _, ev := range events {
		if err := eng.ApplyEvent(ev); err != nil {
			return fmt.Errorf("applying seed event: %w", err)
		}
	}
	statuses := eng.DeriveStatus()

	if err := writeJSON(*feedOut, events); err != nil {
		return fmt.Errorf("writing feed fixture: %w", err)
	}
	log.Printf("wrote feed fixture: %s", *feedOut)

	if err := writeJSON(*statusOut, statuses); err != nil {
		return fmt.Errorf("writing status fixture: %w", err)
	}
	log.Printf("wrote status fixture: %s", *statusOut)

	printStats(statuses)
	return nil
}

// readSeed parses the seed CSV. Expected header:
//
//	kind,id,type,lat,lng,time,light_id,human_id,email
//
// kind is "light", "report", or an action kind (fix/reopen/working).
func readSeed(path string) ([]domain.FeedEvent, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("no data rows")
	}

	colIdx := map[string]int{}
	for i, h := range rows[0] {
		colIdx[h] = i
	}
	get := func(row []string, name string) string {
		i, ok := colIdx[name]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	var events []domain.FeedEvent
	for n, row := range rows[1:] {
		ts, err := time.Parse(time.RFC3339, get(row, "time"))
		if err != nil {
			return nil, fmt.Errorf("row %d: bad time: %w", n+2, err)
		}

		switch kind := get(row, "kind"); kind {
		case "light":
			events = append(events, domain.FeedEvent{
				Collection: domain.CollectionLights,
				Op:         domain.OpInsert,
				Light: &domain.OfficialLight{
					ID:      get(row, "id"),
					HumanID: get(row, "human_id"),
					Lat:     mustFloat(get(row, "lat")),
					Lng:     mustFloat(get(row, "lng")),
				},
			})
		case "report":
			events = append(events, domain.FeedEvent{
				Collection: domain.CollectionReports,
				Op:         domain.OpInsert,
				Report: &domain.Report{
					ID:            get(row, "id"),
					Lat:           mustFloat(get(row, "lat")),
					Lng:           mustFloat(get(row, "lng")),
					Type:          domain.NormalizeOutageType(get(row, "type")),
					Timestamp:     ts,
					LightID:       get(row, "light_id"),
					ReporterEmail: get(row, "email"),
				},
			})
		case "fix", "reopen", "working":
			events = append(events, domain.FeedEvent{
				Collection: domain.CollectionActions,
				Op:         domain.OpInsert,
				Action: &domain.LightAction{
					LightID:    get(row, "light_id"),
					Action:     domain.ActionKind(kind),
					Timestamp:  ts,
					ActorEmail: get(row, "email"),
				},
			})
		default:
			return nil, fmt.Errorf("row %d: unknown kind %q", n+2, kind)
		}
	}
	return events, nil
}

func mustFloat(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

func printStats(statuses domain.StatusMap) {
	counts := map[domain.Status]int{}
	for _, st := range statuses {
		counts[st.Status]++
	}
	for status, n := range counts {
		log.Printf("  %-14s %d", status, n)
	}
}
