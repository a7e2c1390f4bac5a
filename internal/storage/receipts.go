package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tko-aly/usersvc/types"
)

const receiptPrefix = "disclosures/"

// ReceiptStore keeps disclosure receipts as JSON objects.
type ReceiptStore struct {
	backend ObjectStorage
}

func NewReceiptStore(backend ObjectStorage) *ReceiptStore {
	return &ReceiptStore{backend: backend}
}

func receiptKey(id string) string {
	return receiptPrefix + id + ".json"
}

func (s *ReceiptStore) SaveReceipt(ctx context.Context, receipt types.DisclosureReceipt) error {
	if strings.TrimSpace(receipt.ID) == "" {
		return errors.New("receipt id is required")
	}
	data, err := json.Marshal(receipt)
	if err != nil {
		return fmt.Errorf("encode receipt: %w", err)
	}
	if err := s.backend.Put(ctx, receiptKey(receipt.ID), bytes.NewReader(data), int64(len(data)), "application/json"); err != nil {
		return fmt.Errorf("put receipt %s: %w", receipt.ID, err)
	}
	return nil
}

// GetReceipt returns ErrObjectNotFound for unknown ids.
func (s *ReceiptStore) GetReceipt(ctx context.Context, id string) (types.DisclosureReceipt, error) {
	if strings.TrimSpace(id) == "" || strings.ContainsAny(id, "/\\") {
		return types.DisclosureReceipt{}, ErrObjectNotFound
	}
	rc, err := s.backend.Get(ctx, receiptKey(id))
	if err != nil {
		return types.DisclosureReceipt{}, err
	}
	defer rc.Close()

	var receipt types.DisclosureReceipt
	if err := json.NewDecoder(rc).Decode(&receipt); err != nil {
		return types.DisclosureReceipt{}, fmt.Errorf("decode receipt %s: %w", id, err)
	}
	return receipt, nil
}

// DeleteReceipt removes a receipt. Deleting an unknown id is not an error.
func (s *ReceiptStore) DeleteReceipt(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" || strings.ContainsAny(id, "/\\") {
		return nil
	}
	if err := s.backend.Delete(ctx, receiptKey(id)); err != nil {
		return fmt.Errorf("delete receipt %s: %w", id, err)
	}
	return nil
}
