package dispatch

import (
	"net/url"
	"strings"
)

const statusCallbackPath = "/twilio/status"

// StatusCallbackBuilder returns a function producing the delivery-status
// webhook URL from the configured public base URL. The provider only accepts
// public HTTPS endpoints, so anything else yields an empty URL and sends go
// out without a callback.
func StatusCallbackBuilder(publicBaseURL string) func() string {
	return func() string {
		base := strings.TrimRight(strings.TrimSpace(publicBaseURL), "/")
		if !validPublicBase(base) {
			return ""
		}
		return base + statusCallbackPath
	}
}

func validPublicBase(base string) bool {
	if base == "" {
		return false
	}
	u, err := url.Parse(base)
	if err != nil || u.Scheme != "https" || u.Host == "" {
		return false
	}
	host := u.Hostname()
	return host != "localhost" && host != "127.0.0.1"
}
