package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jdelrio/wabulk/internal/messaging/twilioclient"
	"github.com/jdelrio/wabulk/pkg/logging"
)

type messageFetcher interface {
	FetchMessage(ctx context.Context, sid string) (*twilioclient.MessageResource, error)
}

// StatusDetailHandler proxies live per-message status lookups to the provider.
type StatusDetailHandler struct {
	client messageFetcher
	logger *logging.Logger
}

// StatusDetailConfig wires the status-detail handler.
type StatusDetailConfig struct {
	Client messageFetcher
	Logger *logging.Logger
}

func NewStatusDetailHandler(cfg StatusDetailConfig) *StatusDetailHandler {
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return &StatusDetailHandler{client: cfg.Client, logger: cfg.Logger}
}

// HandleStatusDetail processes GET /status-detail/{sid}.
func (h *StatusDetailHandler) HandleStatusDetail(w http.ResponseWriter, r *http.Request) {
	sid := chi.URLParam(r, "sid")
	if sid == "" {
		writeError(w, http.StatusBadRequest, "sid required")
		return
	}

	msg, err := h.client.FetchMessage(r.Context(), sid)
	if err != nil {
		var apiErr *twilioclient.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			writeError(w, http.StatusNotFound, "message not found")
			return
		}
		h.logger.Error("status detail lookup failed", "sid", sid, "error", err)
		writeError(w, http.StatusBadGateway, "provider lookup failed")
		return
	}

	// json.Number rejects the empty string on encode, so absent codes are
	// surfaced as null.
	var errorCode any
	if msg.ErrorCode != "" {
		errorCode = msg.ErrorCode
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"sid":           msg.SID,
		"status":        msg.Status,
		"to":            msg.To,
		"from":          msg.From,
		"error_code":    errorCode,
		"error_message": msg.ErrorMessage,
		"date_sent":     msg.DateSent,
	})
}
