package handlers

import (
	"net/http"
	"strings"

	"github.com/jdelrio/wabulk/internal/ledger"
	"github.com/jdelrio/wabulk/internal/messaging/twilioclient"
	"github.com/jdelrio/wabulk/internal/observability/metrics"
	"github.com/jdelrio/wabulk/pkg/logging"
)

// StatusCallbackHandler ingests provider delivery-status webhooks and folds
// them into the delivery ledger.
type StatusCallbackHandler struct {
	store       *ledger.Store
	logger      *logging.Logger
	metrics     *metrics.DispatchMetrics
	authToken   string
	callbackURL string
}

// StatusCallbackConfig wires the webhook handler. When AuthToken and
// CallbackURL are both set, request signatures are enforced; otherwise
// callbacks are accepted unsigned.
type StatusCallbackConfig struct {
	Store       *ledger.Store
	Logger      *logging.Logger
	Metrics     *metrics.DispatchMetrics
	AuthToken   string
	CallbackURL string
}

func NewStatusCallbackHandler(cfg StatusCallbackConfig) *StatusCallbackHandler {
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return &StatusCallbackHandler{
		store:       cfg.Store,
		logger:      cfg.Logger,
		metrics:     cfg.Metrics,
		authToken:   cfg.AuthToken,
		callbackURL: cfg.CallbackURL,
	}
}

// HandleStatus processes POST /twilio/status. The provider retries callbacks
// it cannot deliver, so every well-formed request is acknowledged with 200
// even when the event references an unknown message.
func (h *StatusCallbackHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if h.authToken != "" && h.callbackURL != "" {
		if !twilioclient.ValidateWebhookSignature(r, h.authToken, h.callbackURL) {
			h.logger.Warn("rejected status callback with invalid signature")
			http.Error(w, "invalid signature", http.StatusUnauthorized)
			return
		}
	}

	if err := r.ParseForm(); err != nil {
		h.logger.Warn("malformed status callback form", "error", err)
		w.WriteHeader(http.StatusOK)
		return
	}

	sid := strings.TrimSpace(r.PostFormValue("MessageSid"))
	status := strings.ToLower(strings.TrimSpace(r.PostFormValue("MessageStatus")))
	if sid == "" || status == "" {
		h.logger.Warn("status callback missing MessageSid or MessageStatus")
		w.WriteHeader(http.StatusOK)
		return
	}

	resolved := h.store.ApplyStatusEvent(sid, status,
		r.PostFormValue("ErrorCode"),
		r.PostFormValue("ErrorMessage"),
	)
	h.metrics.ObserveCallback(status, resolved)
	if resolved {
		h.logger.Info("status callback applied", "sid", sid, "status", status)
	} else {
		h.logger.Warn("status callback for unknown sid", "sid", sid, "status", status)
	}

	w.WriteHeader(http.StatusOK)
}
