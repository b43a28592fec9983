package handlers

import (
	"net/http"

	"github.com/jdelrio/wabulk/internal/ledger"
)

// ReportHandler exposes the delivery report built from the ledger.
type ReportHandler struct {
	store *ledger.Store
}

func NewReportHandler(store *ledger.Store) *ReportHandler {
	return &ReportHandler{store: store}
}

// HandleReport processes GET /report.
func (h *ReportHandler) HandleReport(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.store.BuildReport())
}
