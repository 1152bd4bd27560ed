// Package handler exposes read-only ledger receipt lookups for auditors.
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"credence/internal/ledger"
	dErrors "credence/pkg/domain-errors"
	"credence/pkg/platform/httputil"
	"credence/pkg/platform/sentinel"
)

// ReceiptFetcher is the read-only slice of the ledger client.
type ReceiptFetcher interface {
	FetchReceipt(ctx context.Context, reference string) (*ledger.TransactionDetails, error)
}

// Handler wires the receipt endpoint to the ledger client. Lookups never
// mutate credential state.
type Handler struct {
	client ReceiptFetcher
	logger *slog.Logger
}

func New(client ReceiptFetcher, logger *slog.Logger) *Handler {
	return &Handler{client: client, logger: logger}
}

// Register mounts the receipt endpoint on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/ledger/receipts/{reference}", h.HandleFetchReceipt)
}

// HandleFetchReceipt handles GET /ledger/receipts/{reference}.
func (h *Handler) HandleFetchReceipt(w http.ResponseWriter, r *http.Request) {
	reference := chi.URLParam(r, "reference")
	if reference == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "ledger reference is required"))
		return
	}

	details, err := h.client.FetchReceipt(r.Context(), reference)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "no transaction found for reference"))
			return
		}
		h.logger.ErrorContext(r.Context(), "ledger receipt lookup failed",
			"reference", reference,
			"error", err,
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnavailable, "ledger is unreachable"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, details)
}
