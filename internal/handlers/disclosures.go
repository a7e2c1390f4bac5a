package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/tko-aly/usersvc/internal/auth"
	"github.com/tko-aly/usersvc/internal/services"
	"github.com/tko-aly/usersvc/internal/storage"
	"github.com/tko-aly/usersvc/types"
)

// ReceiptReader loads and purges stored disclosure receipts.
type ReceiptReader interface {
	GetReceipt(ctx context.Context, id string) (types.DisclosureReceipt, error)
	DeleteReceipt(ctx context.Context, id string) error
}

// DisclosureHandler exposes stored disclosure receipts to administrators.
type DisclosureHandler struct {
	receipts ReceiptReader
}

// DisclosureRouter registers receipt routes. receipts may be nil when no
// object storage is configured.
func DisclosureRouter(r chi.Router, receipts ReceiptReader, userService *services.UserService, codec *auth.TokenCodec) {
	handler := &DisclosureHandler{receipts: receipts}

	r.Use(RequireToken(codec), RequireIdentity, requireAdmin(userService))
	r.Get("/{receiptID}", handler.GetReceipt)
	r.Delete("/{receiptID}", handler.DeleteReceipt)
}

func (h *DisclosureHandler) GetReceipt(w http.ResponseWriter, r *http.Request) {
	if h.receipts == nil {
		writeError(w, http.StatusNotFound, "receipt not found")
		return
	}

	receipt, err := h.receipts.GetReceipt(r.Context(), chi.URLParam(r, "receiptID"))
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			writeError(w, http.StatusNotFound, "receipt not found")
			return
		}
		writeAuthError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

func (h *DisclosureHandler) DeleteReceipt(w http.ResponseWriter, r *http.Request) {
	if h.receipts == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err := h.receipts.DeleteReceipt(r.Context(), chi.URLParam(r, "receiptID")); err != nil {
		writeAuthError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
