package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdelrio/wabulk/internal/messaging/twilioclient"
)

type stubFetcher struct {
	msg *twilioclient.MessageResource
	err error
}

func (s *stubFetcher) FetchMessage(ctx context.Context, sid string) (*twilioclient.MessageResource, error) {
	return s.msg, s.err
}

func statusDetailRequest(h *StatusDetailHandler, sid string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Get("/status-detail/{sid}", h.HandleStatusDetail)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status-detail/"+sid, nil))
	return rec
}

func TestHandleStatusDetailReturnsProviderView(t *testing.T) {
	h := NewStatusDetailHandler(StatusDetailConfig{Client: &stubFetcher{msg: &twilioclient.MessageResource{
		SID:      "SM001",
		Status:   "delivered",
		To:       "whatsapp:+5215512345678",
		From:     "whatsapp:+14155238886",
		DateSent: "Mon, 02 Jan 2006 15:04:05 +0000",
	}}})

	rec := statusDetailRequest(h, "SM001")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "SM001", resp["sid"])
	assert.Equal(t, "delivered", resp["status"])
	assert.Nil(t, resp["error_code"])
}

func TestHandleStatusDetailNotFound(t *testing.T) {
	h := NewStatusDetailHandler(StatusDetailConfig{Client: &stubFetcher{
		err: &twilioclient.APIError{StatusCode: http.StatusNotFound, Message: "not found"},
	}})

	rec := statusDetailRequest(h, "SM404")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleStatusDetailProviderError(t *testing.T) {
	h := NewStatusDetailHandler(StatusDetailConfig{Client: &stubFetcher{
		err: &twilioclient.APIError{StatusCode: http.StatusInternalServerError, Message: "upstream"},
	}})

	rec := statusDetailRequest(h, "SM001")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}
