package types

import (
	"strings"
	"time"
)

// Role is the authorization tier of a user account.
type Role string

const (
	RoleKayttaja        Role = "kayttaja"
	RoleJasenvirkailija Role = "jasenvirkailija"
	RoleYllapitaja      Role = "yllapitaja"
)

// ParseRole matches a role name case-insensitively.
func ParseRole(raw string) (Role, bool) {
	switch Role(strings.ToLower(strings.TrimSpace(raw))) {
	case RoleKayttaja:
		return RoleKayttaja, true
	case RoleJasenvirkailija:
		return RoleJasenvirkailija, true
	case RoleYllapitaja:
		return RoleYllapitaja, true
	default:
		return "", false
	}
}

// Membership is the association membership status of a user.
type Membership string

const (
	MembershipNone      Membership = "ei-jasen"
	MembershipMember    Membership = "jasen"
	MembershipSupporter Membership = "kannatusjasen"
	MembershipHonorary  Membership = "kunniajasen"
	MembershipExpelled  Membership = "erotettu"
)

// ParseMembership matches a membership status case-insensitively.
func ParseMembership(raw string) (Membership, bool) {
	m := Membership(strings.ToLower(strings.TrimSpace(raw)))
	switch m {
	case MembershipNone, MembershipMember, MembershipSupporter, MembershipHonorary, MembershipExpelled:
		return m, true
	default:
		return "", false
	}
}

// User represents an account in the system.
// It contains identity, association membership, role, and credential data.
type User struct {
	// ID is the unique identifier of the user.
	ID int `json:"id" db:"id"`

	// Username is the unique login name chosen by the user.
	Username string `json:"username" db:"username"`

	// Name is the user's legal name.
	Name string `json:"name" db:"name"`

	// ScreenName is the nickname shown to other members.
	ScreenName string `json:"screenName" db:"screen_name"`

	// Email is the user's email address.
	Email string `json:"email" db:"email"`

	// Residence is the user's home municipality.
	Residence string `json:"residence" db:"residence"`

	// Phone is the user's phone number.
	Phone string `json:"phone" db:"phone"`

	// IsHYYMember tells whether the user belongs to the student union.
	IsHYYMember bool `json:"isHYYMember" db:"hyy_member"`

	// IsTKTL tells whether the user studies computer science.
	IsTKTL bool `json:"isTKTL" db:"tktl"`

	// Membership is the association membership status.
	Membership Membership `json:"membership" db:"membership"`

	// Role indicates the user's authorization tier.
	Role Role `json:"role" db:"role"`

	// CreatedAt is the timestamp when the user account was created.
	CreatedAt time.Time `json:"createdAt" db:"created_at"`

	// Deleted marks a logically removed account.
	Deleted bool `json:"deleted" db:"deleted"`

	// HashedPassword and Salt are never exposed in API responses.
	HashedPassword string `json:"-" db:"hashed_password"`
	Salt           string `json:"-" db:"salt"`
}

// Registration is the payload for creating a new account.
type Registration struct {
	Username    string `json:"username"`
	Name        string `json:"name"`
	ScreenName  string `json:"screenName"`
	Email       string `json:"email"`
	Residence   string `json:"residence"`
	Phone       string `json:"phone"`
	IsHYYMember bool   `json:"isHYYMember"`
	IsTKTL      bool   `json:"isTKTL"`
	Password1   string `json:"password1"`
	Password2   string `json:"password2"`
}
