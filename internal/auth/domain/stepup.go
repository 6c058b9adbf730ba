package domain

import "time"

// StepUpToken is a single-use confirmation token gating a destructive admin
// operation. A stolen admin bearer token alone is not enough to delete
// anything; the attacker would also need to mint and redeem one of these
// within its five-minute window.
type StepUpToken struct {
	ID        string
	IssuerID  string // account id of the admin that requested confirmation
	Action    string // label of the operation being confirmed
	ExpiresAt time.Time
	Used      bool
	CreatedAt time.Time
}

// Expired reports whether the token can no longer be redeemed due to age.
func (t StepUpToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}
