package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/fobos-app/ledger/internal/api/httpx"
	"github.com/fobos-app/ledger/internal/middleware"
	"github.com/fobos-app/ledger/internal/services"
	"github.com/fobos-app/ledger/internal/validate"
)

type consistencyDetails struct {
	EntryIDs []string              `json:"entry_ids"`
	Pending  []services.Adjustment `json:"pending"`
}

// writeErr maps service errors onto HTTP responses. Consistency is checked
// first since its cause may itself be a not-found.
func writeErr(w http.ResponseWriter, r *http.Request, err error) {
	var (
		cerr *services.ConsistencyError
		verr *services.ValidationError
	)
	switch {
	case errors.As(err, &cerr):
		slog.Error("ledger out of sync", "err", err, "request_id", middleware.RequestIDFrom(r.Context()))
		httpx.WriteError(w, http.StatusInternalServerError, "consistency_error", err.Error(),
			consistencyDetails{EntryIDs: cerr.EntryIDs, Pending: cerr.Pending})
	case errors.As(err, &verr):
		invalid(w, verr.Fields)
	case errors.Is(err, services.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, "not_found", err.Error(), nil)
	case errors.Is(err, services.ErrStore):
		slog.Warn("store failure", "err", err, "request_id", middleware.RequestIDFrom(r.Context()))
		httpx.WriteError(w, http.StatusServiceUnavailable, "store_unavailable", "store unavailable", nil)
	default:
		slog.Error("unhandled error", "err", err, "request_id", middleware.RequestIDFrom(r.Context()))
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "internal error", nil)
	}
}

func badRequest(w http.ResponseWriter, err error) {
	httpx.WriteError(w, http.StatusBadRequest, "bad_request", err.Error(), nil)
}

func invalid(w http.ResponseWriter, errs validate.Errs) {
	httpx.WriteError(w, http.StatusBadRequest, "validation_failed", "validation failed", errs)
}
