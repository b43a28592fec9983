// Package ledger tracks per-recipient delivery state for dispatched messages.
//
// State lives in process memory only: entries survive for the lifetime of the
// process and are rebuilt from nothing on restart. Callbacks for messages sent
// by a previous process resolve to nothing and are dropped.
package ledger

import (
	"sort"
	"sync"
)

// Delivery statuses. Queued and FailedOnSend are the only states written at
// send time; the rest arrive through provider status callbacks.
const (
	StatusQueued       = "queued"
	StatusDelivered    = "delivered"
	StatusFailed       = "failed"
	StatusUndelivered  = "undelivered"
	StatusFailedOnSend = "failed_on_send"
)

// ChannelWhatsApp tags entries dispatched over the WhatsApp channel.
const ChannelWhatsApp = "whatsapp"

// Entry is the delivery record for one canonical recipient address.
type Entry struct {
	Status       string            `json:"status"`
	SID          string            `json:"sid,omitempty"`
	Channel      string            `json:"channel"`
	Template     string            `json:"template"`
	Vars         map[string]string `json:"vars,omitempty"`
	Reason       string            `json:"reason,omitempty"`
	ErrorCode    string            `json:"error_code,omitempty"`
	ErrorMessage string            `json:"error_message,omitempty"`
}

// Rejection records one provider-rejected send attempt.
type Rejection struct {
	Raw     string `json:"numero"`
	Address string `json:"e164"`
	Reason  string `json:"reason"`
}

// BatchSummary aggregates the outcomes of one dispatch run. Exactly one is
// retained at a time; each batch overwrites the previous summary wholesale.
type BatchSummary struct {
	InvalidByNorm []string    `json:"invalid_by_norm"`
	Queued        []string    `json:"queued"`
	FailedOnSend  []Rejection `json:"failed_on_send"`
}

// Report is the bucketed projection of the ledger at one point in time.
type Report struct {
	Delivered           []string         `json:"delivered"`
	FailedOrUndelivered []string         `json:"failed_or_undelivered"`
	Pending             []string         `json:"pending"`
	Raw                 map[string]Entry `json:"raw"`
	LastSummary         *BatchSummary    `json:"last_summary"`
}

// Store is the process-wide delivery ledger. All access is mutex-guarded:
// dispatch runs, status callbacks, and report reads may arrive concurrently.
type Store struct {
	mu          sync.RWMutex
	delivery    map[string]*Entry
	sidIndex    map[string]string
	lastSummary *BatchSummary
}

// NewStore creates an empty ledger.
func NewStore() *Store {
	return &Store{
		delivery: make(map[string]*Entry),
		sidIndex: make(map[string]string),
	}
}

// RecordQueued writes a provisional entry after a successful provider send.
// A prior entry for the same address is overwritten (last write wins).
func (s *Store) RecordQueued(address, sid, template string, vars map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delivery[address] = &Entry{
		Status:   StatusQueued,
		SID:      sid,
		Channel:  ChannelWhatsApp,
		Template: template,
		Vars:     copyVars(vars),
	}
	s.sidIndex[sid] = address
}

// RecordSendFailure marks an address whose send the provider rejected.
// No status callback is expected for these entries.
func (s *Store) RecordSendFailure(address, template, reason string, vars map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delivery[address] = &Entry{
		Status:   StatusFailedOnSend,
		Channel:  ChannelWhatsApp,
		Template: template,
		Vars:     copyVars(vars),
		Reason:   reason,
	}
}

// ApplyStatusEvent reconciles an asynchronous provider status callback.
// Unknown message ids are dropped silently: providers deliver duplicate and
// late callbacks, and ids from before a restart resolve to nothing. Error
// fields are only written when the event carries them, so a later event
// without error details never blanks out an earlier one. Replaying the same
// event is a no-op beyond the first application.
func (s *Store) ApplyStatusEvent(sid, status, errorCode, errorMessage string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	address, ok := s.sidIndex[sid]
	if !ok {
		return false
	}
	entry, ok := s.delivery[address]
	if !ok {
		entry = &Entry{Channel: ChannelWhatsApp}
		s.delivery[address] = entry
	}
	entry.Status = status
	entry.SID = sid
	if errorCode != "" {
		entry.ErrorCode = errorCode
	}
	if errorMessage != "" {
		entry.ErrorMessage = errorMessage
	}
	return true
}

// SetLastSummary replaces the retained batch summary.
func (s *Store) SetLastSummary(summary *BatchSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSummary = summary
}

// Entry returns a copy of the ledger entry for an address.
func (s *Store) Entry(address string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.delivery[address]
	if !ok {
		return Entry{}, false
	}
	return *entry, true
}

// Len reports the number of ledger entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.delivery)
}

// BuildReport projects the ledger into delivered/failed/pending buckets.
// Every entry lands in exactly one bucket; unrecognized status strings count
// as pending. The projection has no side effects.
func (s *Store) BuildReport() *Report {
	s.mu.RLock()
	defer s.mu.RUnlock()
	report := &Report{
		Delivered:           []string{},
		FailedOrUndelivered: []string{},
		Pending:             []string{},
		Raw:                 make(map[string]Entry, len(s.delivery)),
		LastSummary:         s.lastSummary,
	}
	for address, entry := range s.delivery {
		report.Raw[address] = *entry
		switch entry.Status {
		case StatusDelivered:
			report.Delivered = append(report.Delivered, address)
		case StatusFailed, StatusUndelivered, StatusFailedOnSend:
			report.FailedOrUndelivered = append(report.FailedOrUndelivered, address)
		default:
			report.Pending = append(report.Pending, address)
		}
	}
	sort.Strings(report.Delivered)
	sort.Strings(report.FailedOrUndelivered)
	sort.Strings(report.Pending)
	return report
}

func copyVars(vars map[string]string) map[string]string {
	if len(vars) == 0 {
		return nil
	}
	out := make(map[string]string, len(vars))
	for k, v := range vars {
		out[k] = v
	}
	return out
}
