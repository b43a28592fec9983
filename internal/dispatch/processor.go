// Package dispatch runs bulk template sends: it normalizes each recipient,
// hands the item to the provider, and partitions outcomes into the batch
// response while writing provisional entries to the delivery ledger.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jdelrio/wabulk/internal/ledger"
	"github.com/jdelrio/wabulk/internal/observability/metrics"
	"github.com/jdelrio/wabulk/internal/phone"
	"github.com/jdelrio/wabulk/pkg/logging"
)

var dispatchTracer = otel.Tracer("wabulk.internal.dispatch")

// ErrValidation marks malformed batch requests rejected before any dispatch
// work; no ledger mutation has happened when it is returned.
var ErrValidation = errors.New("dispatch: invalid batch request")

// SendRequest is the per-item payload handed to the Sender collaborator.
type SendRequest struct {
	To             string
	TemplateID     string
	Variables      map[string]string
	StatusCallback string
}

// Sender submits one templated message to the provider and returns the
// provider-assigned message id. Any error is treated as a per-item rejection.
type Sender interface {
	SendTemplate(ctx context.Context, req SendRequest) (string, error)
}

// Item is one recipient in a batch request.
type Item struct {
	Phone string            `json:"telefono"`
	Vars  map[string]string `json:"vars"`
}

// BatchRequest is one client-submitted dispatch batch.
type BatchRequest struct {
	ContentSID string            `json:"content_sid"`
	Vars       map[string]string `json:"vars"`
	Items      []Item            `json:"lotes"`
}

// Processor iterates a batch, sending each item and classifying its outcome.
type Processor struct {
	normalizer  *phone.Normalizer
	sender      Sender
	store       *ledger.Store
	logger      *logging.Logger
	metrics     *metrics.DispatchMetrics
	callbackURL func() string
}

// Config wires a Processor's collaborators.
type Config struct {
	Normalizer *phone.Normalizer
	Sender     Sender
	Store      *ledger.Store
	Logger     *logging.Logger
	Metrics    *metrics.DispatchMetrics
	// CallbackURL is asked once per batch for an optional status webhook URL;
	// an empty result omits the callback from provider sends.
	CallbackURL func() string
}

// NewProcessor creates a batch processor.
func NewProcessor(cfg Config) *Processor {
	if cfg.Normalizer == nil {
		panic("dispatch: normalizer cannot be nil")
	}
	if cfg.Sender == nil {
		panic("dispatch: sender cannot be nil")
	}
	if cfg.Store == nil {
		panic("dispatch: ledger store cannot be nil")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return &Processor{
		normalizer:  cfg.Normalizer,
		sender:      cfg.Sender,
		store:       cfg.Store,
		logger:      cfg.Logger,
		metrics:     cfg.Metrics,
		callbackURL: cfg.CallbackURL,
	}
}

// Dispatch processes every item in the batch sequentially. One item's failure
// never aborts the rest: normalization failures and provider rejections are
// recorded in their buckets and the loop continues. The returned summary
// reflects only the send attempt, never final delivery.
func (p *Processor) Dispatch(ctx context.Context, req BatchRequest) (*ledger.BatchSummary, error) {
	if strings.TrimSpace(req.ContentSID) == "" {
		return nil, fmt.Errorf("%w: content_sid required", ErrValidation)
	}
	if len(req.Items) == 0 {
		return nil, fmt.Errorf("%w: lotes required", ErrValidation)
	}

	ctx, span := dispatchTracer.Start(ctx, "dispatch.batch")
	defer span.End()
	span.SetAttributes(
		attribute.String("wabulk.template", req.ContentSID),
		attribute.Int("wabulk.batch_size", len(req.Items)),
		attribute.String("wabulk.normalization_policy", string(p.normalizer.Policy())),
	)

	statusCallback := ""
	if p.callbackURL != nil {
		statusCallback = p.callbackURL()
	}

	result := &ledger.BatchSummary{
		InvalidByNorm: []string{},
		Queued:        []string{},
		FailedOnSend:  []ledger.Rejection{},
	}

	for _, item := range req.Items {
		raw := strings.TrimSpace(item.Phone)
		if raw == "" {
			// Blank phone fields are dropped without a response bucket.
			p.metrics.ObserveOutcome(metrics.OutcomeSkippedBlank)
			p.logger.Debug("skipping blank phone field", "template", req.ContentSID)
			continue
		}
		vars := mergeVars(req.Vars, item.Vars)

		address, err := p.normalizer.Normalize(raw)
		if err != nil {
			result.InvalidByNorm = append(result.InvalidByNorm, fmt.Sprintf("%s (%s)", raw, normalizationReason(err)))
			p.metrics.ObserveOutcome(metrics.OutcomeNormalizationFailed)
			continue
		}

		start := time.Now()
		sid, err := p.sender.SendTemplate(ctx, SendRequest{
			To:             address,
			TemplateID:     req.ContentSID,
			Variables:      vars,
			StatusCallback: statusCallback,
		})
		if err != nil {
			p.store.RecordSendFailure(address, req.ContentSID, err.Error(), vars)
			result.FailedOnSend = append(result.FailedOnSend, ledger.Rejection{
				Raw:     raw,
				Address: address,
				Reason:  err.Error(),
			})
			p.metrics.ObserveOutcome(metrics.OutcomeSendRejected)
			p.metrics.ObserveSendLatency("error", time.Since(start).Seconds())
			p.logger.Warn("provider rejected send", "to", address, "template", req.ContentSID, "error", err)
			continue
		}

		p.store.RecordQueued(address, sid, req.ContentSID, vars)
		result.Queued = append(result.Queued, raw)
		p.metrics.ObserveOutcome(metrics.OutcomeSent)
		p.metrics.ObserveSendLatency("ok", time.Since(start).Seconds())
	}

	p.store.SetLastSummary(result)
	p.logger.Info("batch dispatched",
		"template", req.ContentSID,
		"queued", len(result.Queued),
		"invalid", len(result.InvalidByNorm),
		"rejected", len(result.FailedOnSend),
	)
	return result, nil
}

// mergeVars overlays item vars on batch-global vars; item values win.
func mergeVars(global, item map[string]string) map[string]string {
	if len(global) == 0 {
		return item
	}
	merged := make(map[string]string, len(global)+len(item))
	for k, v := range global {
		merged[k] = v
	}
	for k, v := range item {
		merged[k] = v
	}
	return merged
}

func normalizationReason(err error) string {
	var nerr *phone.NormalizationError
	if errors.As(err, &nerr) {
		return nerr.Reason
	}
	return err.Error()
}
