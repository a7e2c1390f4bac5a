package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"reflect"
	"testing"
	"time"

	"github.com/tko-aly/usersvc/config"
	"github.com/tko-aly/usersvc/types"
)

type memoryStorage struct {
	objects      map[string][]byte
	contentTypes map[string]string
}

func newMemoryStorage() *memoryStorage {
	return &memoryStorage{objects: map[string][]byte{}, contentTypes: map[string]string{}}
}

func (m *memoryStorage) EnsureBucket(context.Context) error { return nil }

func (m *memoryStorage) Put(_ context.Context, key string, r io.Reader, _ int64, contentType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.objects[key] = data
	m.contentTypes[key] = contentType
	return nil
}

func (m *memoryStorage) Get(_ context.Context, key string) (io.ReadCloser, error) {
	data, ok := m.objects[key]
	if !ok {
		return nil, ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memoryStorage) Delete(_ context.Context, key string) error {
	delete(m.objects, key)
	return nil
}

func (m *memoryStorage) Bucket() string { return "memory" }

func TestReceiptRoundTrip(t *testing.T) {
	backend := newMemoryStorage()
	receipts := NewReceiptStore(backend)

	receipt := types.DisclosureReceipt{
		ID:              "0b5e6f1c-6a77-4d2b-9a43-1f0d4f7f3b10",
		ServiceName:     "kirjasto",
		UserID:          5,
		Fields:          []string{"id", "name"},
		PermissionLevel: 5,
		RedirectTarget:  "https://kirjasto.example.com",
		IssuedAt:        time.Date(2024, 5, 1, 8, 30, 0, 0, time.UTC),
	}
	if err := receipts.SaveReceipt(context.Background(), receipt); err != nil {
		t.Fatalf("save: %v", err)
	}

	key := "disclosures/" + receipt.ID + ".json"
	if backend.contentTypes[key] != "application/json" {
		t.Fatalf("expected json object at %s, got %v", key, backend.contentTypes)
	}

	got, err := receipts.GetReceipt(context.Background(), receipt.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !reflect.DeepEqual(got, receipt) {
		t.Fatalf("expected %+v, got %+v", receipt, got)
	}
}

func TestGetReceiptNotFound(t *testing.T) {
	receipts := NewReceiptStore(newMemoryStorage())

	for _, id := range []string{"missing", "", "../secrets"} {
		if _, err := receipts.GetReceipt(context.Background(), id); !errors.Is(err, ErrObjectNotFound) {
			t.Fatalf("id %q: expected not found, got %v", id, err)
		}
	}
}

func TestDeleteReceipt(t *testing.T) {
	backend := newMemoryStorage()
	receipts := NewReceiptStore(backend)
	if err := receipts.SaveReceipt(context.Background(), types.DisclosureReceipt{ID: "r1"}); err != nil {
		t.Fatalf("save: %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := receipts.DeleteReceipt(context.Background(), "r1"); err != nil {
			t.Fatalf("delete %d: %v", i, err)
		}
	}
	if len(backend.objects) != 0 {
		t.Fatalf("expected no objects left, got %v", backend.objects)
	}
	if _, err := receipts.GetReceipt(context.Background(), "r1"); !errors.Is(err, ErrObjectNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}

func TestSaveReceiptRequiresID(t *testing.T) {
	receipts := NewReceiptStore(newMemoryStorage())
	if err := receipts.SaveReceipt(context.Background(), types.DisclosureReceipt{}); err == nil {
		t.Fatal("expected error for receipt without id")
	}
}

func TestNewFromConfig(t *testing.T) {
	backend, err := NewFromConfig(context.Background(), config.StorageConfig{Backend: "none"})
	if err != nil || backend != nil {
		t.Fatalf("expected disabled storage, got %v %v", backend, err)
	}
	if _, err := NewFromConfig(context.Background(), config.StorageConfig{Backend: "s3"}); err == nil {
		t.Fatal("expected unknown backend error")
	}
	if _, err := NewFromConfig(context.Background(), config.StorageConfig{Backend: "minio"}); err == nil {
		t.Fatal("expected missing endpoint error")
	}
}
