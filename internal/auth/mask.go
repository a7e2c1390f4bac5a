package auth

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/tko-aly/usersvc/types"
)

// FieldValue is one disclosed user attribute.
type FieldValue struct {
	Name  string
	Value any
}

// Disclosure is the ordered set of fields visible under a permission mask.
type Disclosure []FieldValue

// MarshalJSON encodes the disclosure as a JSON object keeping field order.
func (d Disclosure) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, fv := range d {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(fv.Name)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(fv.Value)
		if err != nil {
			return nil, fmt.Errorf("encode field %s: %w", fv.Name, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Names lists the disclosed field names in order.
func (d Disclosure) Names() []string {
	names := make([]string, len(d))
	for i, fv := range d {
		names[i] = fv.Name
	}
	return names
}

// SelectVisibleFields returns the fields of user whose canonical bit is set in
// mask.
func SelectVisibleFields(user types.User, mask int64) Disclosure {
	return SelectVisible(userSchema, user, mask)
}

// SelectVisible includes the field at index i of schema iff bit i of mask is
// set. Bits past the end of schema are ignored and a zero mask yields an empty
// result.
func SelectVisible(schema []Field, user types.User, mask int64) Disclosure {
	bits := uint64(mask)
	out := make(Disclosure, 0, len(schema))
	for i, f := range schema {
		if i >= 64 {
			break
		}
		if (bits>>uint(i))&1 == 1 {
			out = append(out, FieldValue{Name: f.Name, Value: f.Get(user)})
		}
	}
	return out
}

// CredentialMask covers the stored password hash and salt. Their bits stay in
// the ordinal table but tokens minted over HTTP have them cleared.
var CredentialMask = func() int64 {
	mask, _ := MaskOf("hashedPassword", "salt")
	return mask
}()

// MaskOf builds the permission mask that discloses exactly the named fields.
func MaskOf(names ...string) (int64, error) {
	var mask int64
	for _, name := range names {
		i, ok := userFieldIndex[name]
		if !ok {
			return 0, E(KindInvalidRequest, "unknown field", fmt.Errorf("field %q", name))
		}
		mask |= 1 << uint(i)
	}
	return mask, nil
}

// FieldNames lists the canonical field names disclosed by mask.
func FieldNames(mask int64) []string {
	bits := uint64(mask)
	var names []string
	for i, f := range userSchema {
		if (bits>>uint(i))&1 == 1 {
			names = append(names, f.Name)
		}
	}
	return names
}
