package entities

import "time"

// OperatorKey authenticates the operator console (spec.md §9 Open
// Question, supplemented per SPEC_FULL.md §2c). There is exactly one
// operator audience — no roles, no per-user ownership — so this is
// deliberately thinner than a multi-tenant API key: a label for the
// humans, a SHA-256 lookup hash, and an AES-GCM encrypted secret used
// to verify the HMAC signature on the session exchange request.
type OperatorKey struct {
	ID              string
	Label           string
	KeyHash         string
	SecretEncrypted string
	IsActive        bool
	LastUsedAt      *time.Time
	CreatedAt       time.Time
}
