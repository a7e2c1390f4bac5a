package auth

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/tko-aly/usersvc/types"
)

// Field describes one user attribute in canonical order. Set is nil for
// attributes that are never written through a field update.
type Field struct {
	Name string
	Get  func(u types.User) any
	Set  func(u *types.User, value any) error
}

// FieldID is the correlation key of an update. It is never a mutation target.
const FieldID = "id"

// The position of a field in this table is the bit that governs it in a
// service's data permission mask. Reordering it changes what every registered
// service can see. The credential fields at the end are masked out of every
// token minted over HTTP; see CredentialMask.
var userSchema = []Field{
	{Name: FieldID, Get: func(u types.User) any { return u.ID }},
	{Name: "username", Get: func(u types.User) any { return u.Username }, Set: setString(func(u *types.User) *string { return &u.Username })},
	{Name: "name", Get: func(u types.User) any { return u.Name }, Set: setString(func(u *types.User) *string { return &u.Name })},
	{Name: "screenName", Get: func(u types.User) any { return u.ScreenName }, Set: setString(func(u *types.User) *string { return &u.ScreenName })},
	{Name: "email", Get: func(u types.User) any { return u.Email }, Set: setString(func(u *types.User) *string { return &u.Email })},
	{Name: "residence", Get: func(u types.User) any { return u.Residence }, Set: setString(func(u *types.User) *string { return &u.Residence })},
	{Name: "phone", Get: func(u types.User) any { return u.Phone }, Set: setString(func(u *types.User) *string { return &u.Phone })},
	{Name: "isHYYMember", Get: func(u types.User) any { return u.IsHYYMember }, Set: setBool(func(u *types.User) *bool { return &u.IsHYYMember })},
	{Name: "isTKTL", Get: func(u types.User) any { return u.IsTKTL }, Set: setBool(func(u *types.User) *bool { return &u.IsTKTL })},
	{Name: "membership", Get: func(u types.User) any { return u.Membership }, Set: setMembership},
	{Name: "role", Get: func(u types.User) any { return u.Role }, Set: setRole},
	{Name: "createdAt", Get: func(u types.User) any { return u.CreatedAt }, Set: setCreatedAt},
	{Name: "deleted", Get: func(u types.User) any { return u.Deleted }},
	{Name: "hashedPassword", Get: func(u types.User) any { return u.HashedPassword }},
	{Name: "salt", Get: func(u types.User) any { return u.Salt }},
}

var userFieldIndex = func() map[string]int {
	index := make(map[string]int, len(userSchema))
	for i, f := range userSchema {
		index[f.Name] = i
	}
	return index
}()

// UserSchema returns a copy of the canonical user field table.
func UserSchema() []Field {
	out := make([]Field, len(userSchema))
	copy(out, userSchema)
	return out
}

// LookupField returns the canonical field with the given name.
func LookupField(name string) (Field, bool) {
	i, ok := userFieldIndex[name]
	if !ok {
		return Field{}, false
	}
	return userSchema[i], true
}

// ChangedFields returns the names in proposed whose value differs from the
// stored one. Names that are not stored user fields (password1, password2,
// unknown keys) are always kept so the authorizer sees them. The id key is
// dropped. The result is sorted by canonical order, then by name.
func ChangedFields(current types.User, proposed map[string]any) []string {
	changed := make([]string, 0, len(proposed))
	var extra []string
	for _, f := range userSchema {
		value, ok := proposed[f.Name]
		if !ok || f.Name == FieldID {
			continue
		}
		if unchanged(f, current, value) {
			continue
		}
		changed = append(changed, f.Name)
	}
	for name := range proposed {
		if _, known := userFieldIndex[name]; !known {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	return append(changed, extra...)
}

// ApplyFields writes the named values into u through the field table. Fields
// without a setter are rejected.
func ApplyFields(u *types.User, values map[string]any, names []string) error {
	for _, name := range names {
		f, ok := LookupField(name)
		if !ok {
			continue
		}
		if f.Set == nil {
			return E(KindInvalidRequest, "field is not writable", fmt.Errorf("field %q", name))
		}
		if err := f.Set(u, values[name]); err != nil {
			return E(KindInvalidRequest, "invalid field value", fmt.Errorf("field %q: %w", name, err))
		}
	}
	return nil
}

// unchanged reports whether writing value through f leaves current as it is.
// Settable fields compare after the setter normalizes the value, so "Kayttaja"
// equals a stored "kayttaja" and createdAt compares instants, not offsets.
func unchanged(f Field, current types.User, value any) bool {
	if f.Set == nil {
		return sameJSON(f.Get(current), value)
	}
	next := current
	if err := f.Set(&next, value); err != nil {
		return false
	}
	before, after := f.Get(current), f.Get(next)
	if t, ok := before.(time.Time); ok {
		u, ok := after.(time.Time)
		return ok && t.Equal(u)
	}
	return before == after
}

func sameJSON(stored, proposed any) bool {
	a, err := json.Marshal(stored)
	if err != nil {
		return false
	}
	b, err := json.Marshal(proposed)
	if err != nil {
		return false
	}
	return bytes.Equal(a, b)
}

func setString(field func(u *types.User) *string) func(*types.User, any) error {
	return func(u *types.User, value any) error {
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("expected string, got %T", value)
		}
		*field(u) = s
		return nil
	}
}

func setBool(field func(u *types.User) *bool) func(*types.User, any) error {
	return func(u *types.User, value any) error {
		b, ok := value.(bool)
		if !ok {
			return fmt.Errorf("expected boolean, got %T", value)
		}
		*field(u) = b
		return nil
	}
}

func setMembership(u *types.User, value any) error {
	s, ok := value.(string)
	if !ok {
		return fmt.Errorf("expected string, got %T", value)
	}
	m, ok := types.ParseMembership(s)
	if !ok {
		return fmt.Errorf("unknown membership %q", s)
	}
	u.Membership = m
	return nil
}

func setRole(u *types.User, value any) error {
	s, ok := value.(string)
	if !ok {
		return fmt.Errorf("expected string, got %T", value)
	}
	r, ok := types.ParseRole(s)
	if !ok {
		return fmt.Errorf("unknown role %q", s)
	}
	u.Role = r
	return nil
}

func setCreatedAt(u *types.User, value any) error {
	s, ok := value.(string)
	if !ok {
		return fmt.Errorf("expected RFC 3339 string, got %T", value)
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return err
	}
	u.CreatedAt = t
	return nil
}
