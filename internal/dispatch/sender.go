package dispatch

import (
	"context"

	"github.com/jdelrio/wabulk/internal/messaging/twilioclient"
)

// TwilioSender adapts the Twilio REST client to the Sender interface.
type TwilioSender struct {
	client *twilioclient.Client
}

// NewTwilioSender wraps an already-configured Twilio client.
func NewTwilioSender(client *twilioclient.Client) *TwilioSender {
	return &TwilioSender{client: client}
}

// SendTemplate submits one content-template message and returns its SID.
func (s *TwilioSender) SendTemplate(ctx context.Context, req SendRequest) (string, error) {
	msg, err := s.client.SendTemplate(ctx, twilioclient.SendTemplateRequest{
		To:               req.To,
		ContentSID:       req.TemplateID,
		ContentVariables: req.Variables,
		StatusCallback:   req.StatusCallback,
	})
	if err != nil {
		return "", err
	}
	return msg.SID, nil
}
