package handlers

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdelrio/wabulk/internal/ledger"
	"github.com/jdelrio/wabulk/internal/messaging/twilioclient"
)

func postStatus(t *testing.T, h *StatusCallbackHandler, form url.Values, sign func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/twilio/status", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if sign != nil {
		sign(req)
	}
	rec := httptest.NewRecorder()
	h.HandleStatus(rec, req)
	return rec
}

func TestHandleStatusAppliesDeliveryEvent(t *testing.T) {
	store := ledger.NewStore()
	store.RecordQueued("+5215512345678", "SM001", "HX123", nil)
	h := NewStatusCallbackHandler(StatusCallbackConfig{Store: store})

	rec := postStatus(t, h, url.Values{
		"MessageSid":    {"SM001"},
		"MessageStatus": {"delivered"},
	}, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	entry, ok := store.Entry("+5215512345678")
	require.True(t, ok)
	assert.Equal(t, ledger.StatusDelivered, entry.Status)
}

func TestHandleStatusRecordsErrorFields(t *testing.T) {
	store := ledger.NewStore()
	store.RecordQueued("+5215512345678", "SM001", "HX123", nil)
	h := NewStatusCallbackHandler(StatusCallbackConfig{Store: store})

	rec := postStatus(t, h, url.Values{
		"MessageSid":    {"SM001"},
		"MessageStatus": {"failed"},
		"ErrorCode":     {"63016"},
		"ErrorMessage":  {"outside allowed window"},
	}, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	entry, _ := store.Entry("+5215512345678")
	assert.Equal(t, ledger.StatusFailed, entry.Status)
	assert.Equal(t, "63016", entry.ErrorCode)
	assert.Equal(t, "outside allowed window", entry.ErrorMessage)
}

func TestHandleStatusAcksUnknownSid(t *testing.T) {
	h := NewStatusCallbackHandler(StatusCallbackConfig{Store: ledger.NewStore()})

	rec := postStatus(t, h, url.Values{
		"MessageSid":    {"SM404"},
		"MessageStatus": {"delivered"},
	}, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleStatusAcksMalformedPayload(t *testing.T) {
	h := NewStatusCallbackHandler(StatusCallbackConfig{Store: ledger.NewStore()})

	rec := postStatus(t, h, url.Values{"MessageStatus": {"delivered"}}, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = postStatus(t, h, url.Values{"MessageSid": {"SM001"}}, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleStatusEnforcesSignatureWhenConfigured(t *testing.T) {
	const authToken = "secret-token"
	const callbackURL = "https://bulk.example.com/twilio/status"
	store := ledger.NewStore()
	store.RecordQueued("+5215512345678", "SM001", "HX123", nil)
	h := NewStatusCallbackHandler(StatusCallbackConfig{
		Store:       store,
		AuthToken:   authToken,
		CallbackURL: callbackURL,
	})

	form := url.Values{
		"MessageSid":    {"SM001"},
		"MessageStatus": {"delivered"},
	}

	rec := postStatus(t, h, form, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = postStatus(t, h, form, func(req *http.Request) {
		req.Header.Set("X-Twilio-Signature", twilioclient.ComputeWebhookSignature(authToken, callbackURL, form))
	})
	assert.Equal(t, http.StatusOK, rec.Code)

	entry, _ := store.Entry("+5215512345678")
	assert.Equal(t, ledger.StatusDelivered, entry.Status)
}
