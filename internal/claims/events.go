package claims

import "github.com/TobiSchelling/claimcheck/internal/database"

// Event types sent to a Publisher.
const (
	EventClaimCreated   = "claim.created"
	EventClaimFlagged   = "claim.flagged"
	EventClaimUnflagged = "claim.unflagged"
)

// Event describes a change to a claim.
type Event struct {
	Type  string          `json:"type"`
	Claim *database.Claim `json:"claim"`
}

// Publisher receives claim events. Publish must not block.
type Publisher interface {
	Publish(e Event)
}
