package services

import (
	"context"
	"errors"
	"testing"

	"github.com/tko-aly/usersvc/internal/auth"
)

func TestServiceRegistryCreate(t *testing.T) {
	registry := NewServiceRegistry(newFakeServiceRepo())

	created, err := registry.Create(context.Background(), ServiceInput{
		ServiceName:     "kirjasto",
		DisplayName:     "Kirjasto",
		RedirectURL:     "https://kirjasto.example.com",
		DataPermissions: 1,
		Fields:          []string{"email"},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	want, _ := auth.MaskOf("id", "email")
	if created.DataPermissions != want {
		t.Fatalf("expected mask %b, got %b", want, created.DataPermissions)
	}

	got, err := registry.GetByName(context.Background(), "kirjasto")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.DisplayName != "Kirjasto" {
		t.Fatalf("unexpected service %+v", got)
	}

	_, err = registry.Create(context.Background(), ServiceInput{ServiceName: "kirjasto", DisplayName: "Toinen"})
	if !errors.Is(err, auth.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestServiceRegistryRejectsInvalidInput(t *testing.T) {
	registry := NewServiceRegistry(newFakeServiceRepo())

	cases := []struct {
		name string
		in   ServiceInput
	}{
		{name: "missing name", in: ServiceInput{DisplayName: "X"}},
		{name: "negative mask", in: ServiceInput{ServiceName: "x", DisplayName: "X", DataPermissions: -1}},
		{name: "unknown field", in: ServiceInput{ServiceName: "x", DisplayName: "X", Fields: []string{"shoeSize"}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := registry.Create(context.Background(), tc.in); !errors.Is(err, auth.ErrInvalidRequest) {
				t.Fatalf("expected invalid request, got %v", err)
			}
		})
	}
}

func TestServiceRegistryDelete(t *testing.T) {
	registry := NewServiceRegistry(newFakeServiceRepo())
	if _, err := registry.Create(context.Background(), ServiceInput{ServiceName: "x", DisplayName: "X"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := registry.Delete(context.Background(), "x"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := registry.Delete(context.Background(), "x"); !errors.Is(err, auth.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	services, err := registry.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(services) != 0 {
		t.Fatalf("expected no services, got %d", len(services))
	}
}
