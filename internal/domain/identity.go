package domain

import "strings"

// IdentityKey is the normalized string tag that recognizes "the same
// reporter" across reports, used for rate limiting and acknowledgment
// attribution. Empty means no usable signal.
type IdentityKey string

// IdentityNone is the absence of an identity key.
const IdentityNone IdentityKey = ""

// ResolveIdentity derives an identity key with fixed precedence:
// authenticated user id > email > phone > name. Returns IdentityNone only
// when no usable signal exists.
func ResolveIdentity(userID, name, phone, email string) IdentityKey {
	if id := strings.TrimSpace(userID); id != "" {
		return IdentityKey("uid:" + id)
	}
	if e := normalizeEmail(email); e != "" {
		return IdentityKey("email:" + e)
	}
	if p := normalizePhone(phone); p != "" {
		return IdentityKey("phone:" + p)
	}
	if n := normalizeName(name); n != "" {
		return IdentityKey("name:" + n)
	}
	return IdentityNone
}

// ReportIdentity applies the same precedence and normalization to a stored
// report row, so historical rows compare equal to current sessions even when
// raw casing or formatting differed at capture time.
func ReportIdentity(r Report) IdentityKey {
	return ResolveIdentity(r.ReporterUserID, r.ReporterName, r.ReporterPhone, r.ReporterEmail)
}

// ActionIdentity extracts the actor identity from an action log row.
func ActionIdentity(a LightAction) IdentityKey {
	return ResolveIdentity(a.ActorUserID, a.ActorName, a.ActorPhone, a.ActorEmail)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// normalizePhone strips every non-digit character, so "+1 (555) 010-2030"
// and "15550102030" compare equal.
func normalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
