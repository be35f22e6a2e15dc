package entities

// ExternalID names a payment object as the provider sees it (e.g.
// "pi_..." or "re_..."). Exactly one canonical Payment row exists per
// ExternalID.
type ExternalID string

// EventID names one delivery from the provider. It is the dedup
// primitive: inserting it into provider_events (or audit_log) more
// than once is a benign no-op, never an error.
type EventID string

func (e ExternalID) String() string { return string(e) }
func (e EventID) String() string    { return string(e) }
