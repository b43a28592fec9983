package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdelrio/wabulk/internal/ledger"
)

func TestHandleReportBucketsEntries(t *testing.T) {
	store := ledger.NewStore()
	store.RecordQueued("+5215512345678", "SM001", "HX123", nil)
	store.RecordQueued("+526142249654", "SM002", "HX123", nil)
	store.RecordQueued("+5215598765432", "SM003", "HX123", nil)
	store.ApplyStatusEvent("SM001", ledger.StatusDelivered, "", "")
	store.ApplyStatusEvent("SM002", ledger.StatusFailed, "63016", "window closed")

	h := NewReportHandler(store)
	req := httptest.NewRequest(http.MethodGet, "/report", nil)
	rec := httptest.NewRecorder()
	h.HandleReport(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var report ledger.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, []string{"+5215512345678"}, report.Delivered)
	assert.Equal(t, []string{"+526142249654"}, report.FailedOrUndelivered)
	assert.Equal(t, []string{"+5215598765432"}, report.Pending)
	assert.Len(t, report.Raw, 3)
}

func TestHandleReportEmptyLedger(t *testing.T) {
	h := NewReportHandler(ledger.NewStore())
	rec := httptest.NewRecorder()
	h.HandleReport(rec, httptest.NewRequest(http.MethodGet, "/report", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `"delivered":[]`)
	assert.Contains(t, body, `"failed_or_undelivered":[]`)
	assert.Contains(t, body, `"pending":[]`)
}
