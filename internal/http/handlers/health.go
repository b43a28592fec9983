package handlers

import "net/http"

// Version is the reported application version.
const Version = "5.0.0"

// HealthHandler answers liveness probes with basic identity info.
type HealthHandler struct {
	accountLast4 string
}

func NewHealthHandler(accountLast4 string) *HealthHandler {
	return &HealthHandler{accountLast4: accountLast4}
}

// HandleHealth processes GET /health.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":                true,
		"app":               "wabulk",
		"version":           Version,
		"account_sid_last4": h.accountLast4,
	})
}
