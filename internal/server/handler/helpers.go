package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/synthlabs/vaultkeeper/internal/domain"
)

// writeJSON marshals v as JSON and writes it with the given status code. If
// marshaling fails, it falls back to a plain 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(data)
}

// writeError sends a JSON-formatted error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeDomainError maps a ledger error to an HTTP status. Unknown errors
// become a 500 with a generic body so internals do not leak to clients.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "position not found")
	case errors.Is(err, domain.ErrNotOwner):
		writeError(w, http.StatusForbidden, domain.ErrNotOwner.Error())
	case errors.Is(err, domain.ErrPositionNotOpen),
		errors.Is(err, domain.ErrPositionStillOpen),
		errors.Is(err, domain.ErrPositionHealthy),
		errors.Is(err, domain.ErrPositionUnhealthy),
		errors.Is(err, domain.ErrInsufficientBalance):
		writeError(w, http.StatusConflict, firstDomainMessage(err))
	case errors.Is(err, domain.ErrNoCollateral),
		errors.Is(err, domain.ErrNoMintAmount),
		errors.Is(err, domain.ErrInsufficientCollateral):
		writeError(w, http.StatusBadRequest, firstDomainMessage(err))
	case errors.Is(err, domain.ErrInvalidPrice):
		writeError(w, http.StatusBadGateway, domain.ErrInvalidPrice.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// firstDomainMessage unwraps to the sentinel so responses carry the stable
// message rather than the wrapped operational context.
func firstDomainMessage(err error) string {
	for _, sentinel := range []error{
		domain.ErrPositionNotOpen,
		domain.ErrPositionStillOpen,
		domain.ErrPositionHealthy,
		domain.ErrPositionUnhealthy,
		domain.ErrInsufficientBalance,
		domain.ErrNoCollateral,
		domain.ErrNoMintAmount,
		domain.ErrInsufficientCollateral,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return err.Error()
}

// parseListOpts extracts pagination and time-range parameters from the query
// string. Defaults: limit=50 (max 500), offset=0. Time bounds are RFC 3339.
func parseListOpts(r *http.Request) domain.ListOpts {
	q := r.URL.Query()

	limit := 50
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > 500 {
		limit = 500
	}

	offset := 0
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	opts := domain.ListOpts{Limit: limit, Offset: offset}
	if v := q.Get("since"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			opts.Since = &t
		}
	}
	if v := q.Get("until"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			opts.Until = &t
		}
	}
	return opts
}

// pathID extracts the {id} path parameter as a position ID.
func pathID(r *http.Request) (uint64, error) {
	return strconv.ParseUint(r.PathValue("id"), 10, 64)
}
