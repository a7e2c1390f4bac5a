package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/tko-aly/usersvc/types"
)

func TestAuthorizeUpdate(t *testing.T) {
	const (
		target = 10
		other  = 20
	)

	cases := []struct {
		name     string
		fields   []string
		modifier int
		role     types.Role
		allowed  bool
	}{
		{name: "self edits contact details", fields: []string{"email", "phone"}, modifier: target, role: types.RoleKayttaja, allowed: true},
		{name: "self changes password", fields: []string{FieldPassword1, FieldPassword2}, modifier: target, role: types.RoleKayttaja, allowed: true},
		{name: "self edits role", fields: []string{"role"}, modifier: target, role: types.RoleKayttaja, allowed: false},
		{name: "self edits name", fields: []string{"name"}, modifier: target, role: types.RoleKayttaja, allowed: false},
		{name: "self id is a correlation key", fields: []string{FieldID, "residence"}, modifier: target, role: types.RoleKayttaja, allowed: true},
		{name: "staff self edit uses self tier", fields: []string{"membership"}, modifier: target, role: types.RoleJasenvirkailija, allowed: false},
		{name: "staff edits username and membership", fields: []string{"username", "membership"}, modifier: other, role: types.RoleJasenvirkailija, allowed: true},
		{name: "staff edits contact details", fields: []string{"email", "isTKTL"}, modifier: other, role: types.RoleJasenvirkailija, allowed: true},
		{name: "staff edits role", fields: []string{"role"}, modifier: other, role: types.RoleJasenvirkailija, allowed: false},
		{name: "staff mixed fields reject whole update", fields: []string{"name", "createdAt"}, modifier: other, role: types.RoleJasenvirkailija, allowed: false},
		{name: "admin edits role and createdAt", fields: []string{"role", "createdAt"}, modifier: other, role: types.RoleYllapitaja, allowed: true},
		{name: "admin edits everything editable", fields: []string{"name", "username", "membership", "email", "role"}, modifier: other, role: types.RoleYllapitaja, allowed: true},
		{name: "admin cannot touch credentials", fields: []string{"hashedPassword"}, modifier: other, role: types.RoleYllapitaja, allowed: false},
		{name: "admin cannot undelete through update", fields: []string{"deleted"}, modifier: other, role: types.RoleYllapitaja, allowed: false},
		{name: "unknown field", fields: []string{"shoeSize"}, modifier: target, role: types.RoleKayttaja, allowed: false},
		{name: "plain user edits other user", fields: []string{"email"}, modifier: other, role: types.RoleKayttaja, allowed: false},
		{name: "plain user touches other user without fields", fields: nil, modifier: other, role: types.RoleKayttaja, allowed: false},
		{name: "unknown role on other user", fields: []string{"email"}, modifier: other, role: types.Role("guest"), allowed: false},
		{name: "self no-op", fields: nil, modifier: target, role: types.RoleKayttaja, allowed: true},
		{name: "admin role in display case", fields: []string{"role"}, modifier: other, role: types.Role("Yllapitaja"), allowed: true},
		{name: "staff role in upper case", fields: []string{"membership"}, modifier: other, role: types.Role("JASENVIRKAILIJA"), allowed: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := AuthorizeUpdate(target, tc.fields, tc.modifier, tc.role)
			if tc.allowed && err != nil {
				t.Fatalf("expected accept, got %v", err)
			}
			if !tc.allowed && !errors.Is(err, ErrForbidden) {
				t.Fatalf("expected forbidden, got %v", err)
			}
		})
	}
}

func TestAuthorizeUpdateRejectionIsNonSpecific(t *testing.T) {
	err := AuthorizeUpdate(1, []string{"email", "role"}, 1, types.RoleKayttaja)
	if err == nil {
		t.Fatal("expected rejection")
	}
	if err.Error() != "forbidden" {
		t.Fatalf("rejection must not name fields, got %q", err.Error())
	}
}

func TestEditTiersAreStrictSupersets(t *testing.T) {
	for name := range selfEditSet {
		if !staffEditSet.has(name) {
			t.Fatalf("staff tier is missing self field %q", name)
		}
	}
	for name := range staffEditSet {
		if !adminEditSet.has(name) {
			t.Fatalf("admin tier is missing staff field %q", name)
		}
	}
	if len(staffEditSet) <= len(selfEditSet) || len(adminEditSet) <= len(staffEditSet) {
		t.Fatal("expected each tier to add fields")
	}
}

func TestNoOpFieldIsNotAuthorized(t *testing.T) {
	current := sampleUser()
	proposed := map[string]any{
		"id":   float64(current.ID),
		"role": string(current.Role),
	}

	fields := ChangedFields(current, proposed)
	if len(fields) != 0 {
		t.Fatalf("expected no changed fields, got %v", fields)
	}
	if err := AuthorizeUpdate(current.ID, fields, current.ID, current.Role); err != nil {
		t.Fatalf("expected no-op accept, got %v", err)
	}
}

func TestEchoedValuesInOtherSpellingAreNoOps(t *testing.T) {
	current := sampleUser()
	helsinki := time.FixedZone("EET", 2*60*60)

	proposed := map[string]any{
		"role":       "Kayttaja",
		"membership": strings.ToUpper(string(current.Membership)),
		"createdAt":  current.CreatedAt.In(helsinki).Format(time.RFC3339Nano),
	}
	fields := ChangedFields(current, proposed)
	if len(fields) != 0 {
		t.Fatalf("expected no changed fields, got %v", fields)
	}
	if err := AuthorizeUpdate(current.ID, fields, current.ID, current.Role); err != nil {
		t.Fatalf("expected self no-op accept, got %v", err)
	}
}
