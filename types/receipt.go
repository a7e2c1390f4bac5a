package types

import "time"

// DisclosureReceipt records that a user authorized a service to see a set of
// their fields.
type DisclosureReceipt struct {
	ID              string    `json:"id"`
	ServiceName     string    `json:"serviceName"`
	UserID          int       `json:"userId"`
	Fields          []string  `json:"fields"`
	PermissionLevel int64     `json:"permissionLevel"`
	RedirectTarget  string    `json:"redirectTarget,omitempty"`
	IssuedAt        time.Time `json:"issuedAt"`
}
