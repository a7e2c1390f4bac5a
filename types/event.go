package types

import "time"

const (
	UserEventCreated = "user.created"
	UserEventUpdated = "user.updated"
	UserEventDeleted = "user.deleted"
)

// UserEvent announces a persisted change to a user account. It names the
// changed fields but never carries their values.
type UserEvent struct {
	Type       string    `json:"type"`
	UserID     int       `json:"userId"`
	Fields     []string  `json:"fields,omitempty"`
	ModifierID int       `json:"modifierId,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}
