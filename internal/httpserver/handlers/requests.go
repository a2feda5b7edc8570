package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/relay/internal/domain"
	"github.com/MrSnakeDoc/relay/internal/executor"
	"github.com/MrSnakeDoc/relay/internal/httpserver/deps"
	"github.com/MrSnakeDoc/relay/internal/logger"
	"github.com/MrSnakeDoc/relay/internal/relay"
)

// DefaultMaxBodyBytes caps the inbound relay payload when deps leave it unset.
const DefaultMaxBodyBytes = 10 << 20

const (
	msgInvalidID  = "Invalid request id"
	msgNotFound   = "Request not found"
	msgDeleted    = "Request deleted successfully"
	msgBadPayload = "Invalid request body"
)

// Relay executes the caller's request and answers with the relayed outcome.
func Relay(d deps.Deps) http.HandlerFunc {
	maxBody := d.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = DefaultMaxBodyBytes
	}

	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxBody)

		var req domain.Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			var tooBig *http.MaxBytesError
			if errors.As(err, &tooBig) {
				writeMessage(w, http.StatusRequestEntityTooLarge, "Request body too large")
				return
			}
			writeMessage(w, http.StatusBadRequest, msgBadPayload)
			return
		}

		resp, err := d.Relay.Relay(r.Context(), req)
		switch {
		case err == nil:
		case errors.Is(err, domain.ErrInvalidRequest):
			writeMessage(w, http.StatusBadRequest, err.Error())
			return
		case errors.Is(err, executor.ErrCanceled):
			// Caller left or the request deadline passed; nothing was recorded.
			return
		default:
			d.Logger.Error("relay failed", logger.Error(err))
			writeMessage(w, http.StatusInternalServerError, "Error relaying request")
			return
		}

		w.Header().Set("X-Relay-Attempt-Id", resp.AttemptID)
		if resp.RecordID > 0 {
			w.Header().Set("X-Relay-History-Id", strconv.FormatInt(resp.RecordID, 10))
		}
		writeJSON(w, relay.WrapperStatus(resp.StatusCode), resp)
	}
}

// ListRequests returns one page of history summaries.
func ListRequests(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		page, ok := positiveParam(q.Get("page"), 1)
		if !ok {
			writeMessage(w, http.StatusBadRequest, "page must be a positive integer")
			return
		}
		limit, ok := positiveParam(q.Get("limit"), d.History.DefaultPageSize())
		if !ok {
			writeMessage(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}

		result, err := d.History.List(r.Context(), page, limit)
		if err != nil {
			if errors.Is(err, domain.ErrInvalidRequest) {
				writeMessage(w, http.StatusBadRequest, err.Error())
				return
			}
			d.Logger.Error("listing history failed", logger.Error(err))
			writeMessage(w, http.StatusInternalServerError, "Error retrieving requests")
			return
		}

		writeJSON(w, http.StatusOK, result)
	}
}

// GetRequest returns one full history record.
func GetRequest(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(r)
		if !ok {
			writeMessage(w, http.StatusBadRequest, msgInvalidID)
			return
		}

		detail, err := d.History.Get(r.Context(), id)
		if err != nil {
			writeLookupError(w, d, err, "Error retrieving request")
			return
		}

		writeJSON(w, http.StatusOK, detail)
	}
}

// DeleteRequest removes one history record.
func DeleteRequest(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(r)
		if !ok {
			writeMessage(w, http.StatusBadRequest, msgInvalidID)
			return
		}

		if err := d.History.Delete(r.Context(), id); err != nil {
			writeLookupError(w, d, err, "Error deleting request")
			return
		}

		d.Logger.Info("history record deleted", logger.Int64("record_id", id))
		writeMessage(w, http.StatusOK, msgDeleted)
	}
}

func writeLookupError(w http.ResponseWriter, d deps.Deps, err error, fallback string) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeMessage(w, http.StatusNotFound, msgNotFound)
	case errors.Is(err, domain.ErrInvalidRequest):
		writeMessage(w, http.StatusBadRequest, msgInvalidID)
	default:
		d.Logger.Error(fallback, logger.Error(err))
		writeMessage(w, http.StatusInternalServerError, fallback)
	}
}

func idParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		return 0, false
	}
	return id, true
}

// positiveParam parses an optional positive integer query value.
func positiveParam(raw string, def int) (int, bool) {
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}
