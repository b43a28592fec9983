package twilioclient

import (
	"encoding/json"
	"errors"
	"strings"
)

// SendTemplateRequest describes one outbound templated WhatsApp message.
type SendTemplateRequest struct {
	// To is the recipient in E.164 form; the whatsapp: channel prefix is
	// applied by the client.
	To string
	// ContentSID identifies the approved message template.
	ContentSID string
	// ContentVariables binds template placeholders ("1".."4") to values.
	ContentVariables map[string]string
	// StatusCallback, when non-empty, is the webhook URL for delivery events.
	StatusCallback string
}

func (r SendTemplateRequest) validate() error {
	if strings.TrimSpace(r.To) == "" {
		return errors.New("twilioclient: recipient required")
	}
	if strings.TrimSpace(r.ContentSID) == "" {
		return errors.New("twilioclient: content sid required")
	}
	return nil
}

// MessageResource mirrors the Twilio message resource.
type MessageResource struct {
	SID          string      `json:"sid"`
	Status       string      `json:"status"`
	To           string      `json:"to"`
	From         string      `json:"from"`
	Body         string      `json:"body"`
	NumSegments  string      `json:"num_segments"`
	Direction    string      `json:"direction"`
	ErrorCode    json.Number `json:"error_code"`
	ErrorMessage string      `json:"error_message"`
	DateCreated  string      `json:"date_created"`
	DateSent     string      `json:"date_sent"`
}

// WhatsAppAddress prefixes an E.164 number with the WhatsApp channel tag.
func WhatsAppAddress(e164 string) string {
	if strings.HasPrefix(e164, "whatsapp:") {
		return e164
	}
	return "whatsapp:" + e164
}
