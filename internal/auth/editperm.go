package auth

import "github.com/tko-aly/usersvc/types"

// Pseudo fields accepted in updates to change the password. They are not
// stored user attributes.
const (
	FieldPassword1 = "password1"
	FieldPassword2 = "password2"
)

type fieldSet map[string]struct{}

func newFieldSet(groups ...[]string) fieldSet {
	set := make(fieldSet)
	for _, g := range groups {
		for _, name := range g {
			set[name] = struct{}{}
		}
	}
	return set
}

func (s fieldSet) has(name string) bool {
	_, ok := s[name]
	return ok
}

var (
	selfEditable = []string{
		"screenName", "email", "residence", "phone",
		"isHYYMember", "isTKTL", FieldPassword1, FieldPassword2,
	}
	staffEditable = []string{"name", "username", "membership"}
	adminEditable = []string{"role", "createdAt"}
)

// Each tier is a strict superset of the one before it.
var (
	selfEditSet  = newFieldSet(selfEditable)
	staffEditSet = newFieldSet(selfEditable, staffEditable)
	adminEditSet = newFieldSet(selfEditable, staffEditable, adminEditable)
)

func allowedFields(targetID, modifierID int, modifierRole types.Role) (fieldSet, bool) {
	if modifierID > 0 && modifierID == targetID {
		return selfEditSet, true
	}
	switch modifierRole {
	case types.RoleJasenvirkailija:
		return staffEditSet, true
	case types.RoleYllapitaja:
		return adminEditSet, true
	default:
		return nil, false
	}
}

// AuthorizeUpdate accepts (nil) or rejects (ErrForbidden) a whole update. The
// fields must already exclude values equal to the stored ones; see
// ChangedFields. The rejection never names the offending field.
func AuthorizeUpdate(targetID int, fields []string, modifierID int, modifierRole types.Role) error {
	if role, ok := types.ParseRole(string(modifierRole)); ok {
		modifierRole = role
	}
	allowed, ok := allowedFields(targetID, modifierID, modifierRole)
	if !ok {
		return E(KindForbidden, "forbidden", nil)
	}
	for _, name := range fields {
		if name == FieldID {
			continue
		}
		if !allowed.has(name) {
			return E(KindForbidden, "forbidden", nil)
		}
	}
	return nil
}
