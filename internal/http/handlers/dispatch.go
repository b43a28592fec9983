package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/jdelrio/wabulk/internal/dispatch"
	"github.com/jdelrio/wabulk/internal/ledger"
	"github.com/jdelrio/wabulk/pkg/logging"
)

// batchDispatcher runs one bulk template batch.
type batchDispatcher interface {
	Dispatch(ctx context.Context, req dispatch.BatchRequest) (*ledger.BatchSummary, error)
}

// DispatchHandler accepts bulk template batches and returns the send summary.
type DispatchHandler struct {
	processor batchDispatcher
	logger    *logging.Logger
}

// DispatchConfig wires the bulk dispatch handler.
type DispatchConfig struct {
	Processor batchDispatcher
	Logger    *logging.Logger
}

func NewDispatchHandler(cfg DispatchConfig) *DispatchHandler {
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return &DispatchHandler{processor: cfg.Processor, logger: cfg.Logger}
}

// HandleSendBulk processes POST /send-template-bulk.
func (h *DispatchHandler) HandleSendBulk(w http.ResponseWriter, r *http.Request) {
	var req dispatch.BatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	summary, err := h.processor.Dispatch(r.Context(), req)
	if err != nil {
		if errors.Is(err, dispatch.ErrValidation) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("batch dispatch failed", "error", err)
		writeError(w, http.StatusInternalServerError, "dispatch failed")
		return
	}

	writeJSON(w, http.StatusOK, summary)
}
