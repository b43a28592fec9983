package twilioclient

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"net/http"
	"net/url"
	"sort"
	"strings"
)

// ValidateWebhookSignature validates that a status callback came from Twilio.
// The signature covers the full webhook URL plus the sorted form parameters,
// HMAC-SHA1 signed with the account auth token and base64 encoded.
func ValidateWebhookSignature(r *http.Request, authToken, webhookURL string) bool {
	signature := r.Header.Get("X-Twilio-Signature")
	if signature == "" {
		return false
	}
	if err := r.ParseForm(); err != nil {
		return false
	}
	expected := ComputeWebhookSignature(authToken, webhookURL, r.PostForm)
	return hmac.Equal([]byte(signature), []byte(expected))
}

// ComputeWebhookSignature derives the signature Twilio would attach to a
// callback with the given URL and form parameters.
func ComputeWebhookSignature(authToken, webhookURL string, params url.Values) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var payload strings.Builder
	payload.WriteString(webhookURL)
	for _, key := range keys {
		for _, value := range params[key] {
			payload.WriteString(key)
			payload.WriteString(value)
		}
	}

	mac := hmac.New(sha1.New, []byte(authToken))
	mac.Write([]byte(payload.String()))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
