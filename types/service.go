package types

import "time"

// Service is a client application that users may disclose their data to.
type Service struct {
	ID int `json:"id" db:"id"`

	// ServiceName is the unique lookup key of the service.
	ServiceName string `json:"serviceName" db:"service_name"`

	// DisplayName is shown to the user on the disclosure prompt.
	DisplayName string `json:"displayName" db:"display_name"`

	// RedirectURL is where the user is sent after a disclosure when the
	// request does not name a target.
	RedirectURL string `json:"redirectUrl" db:"redirect_url"`

	// DataPermissions holds one bit per user field, in canonical field order.
	DataPermissions int64 `json:"dataPermissions" db:"data_permissions"`

	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}
