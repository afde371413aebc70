package notifications

import (
	"context"
	"fmt"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"go.uber.org/zap"

	"github.com/swiftride/dispatch/pkg/common"
	"github.com/swiftride/dispatch/pkg/logger"
)

// TwilioNotifier delivers notifications as SMS through Twilio.
type TwilioNotifier struct {
	client     *twilio.RestClient
	fromNumber string
}

// NewTwilioNotifier creates a Twilio-backed notifier.
func NewTwilioNotifier(accountSID, authToken, fromNumber string) *TwilioNotifier {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &TwilioNotifier{client: client, fromNumber: fromNumber}
}

// Send delivers the rendered template to the recipient's phone number.
func (n *TwilioNotifier) Send(ctx context.Context, recipient, template string, data map[string]string) error {
	params := &twilioApi.CreateMessageParams{}
	params.SetTo(recipient)
	params.SetFrom(n.fromNumber)
	params.SetBody(renderTemplate(template, data))

	resp, err := n.client.Api.CreateMessage(params)
	if err != nil {
		return common.NewDependencyError("failed to send SMS", err)
	}
	if resp.Sid == nil {
		return common.NewDependencyError("no message SID returned", fmt.Errorf("twilio: empty response"))
	}

	logger.Debug("SMS sent",
		zap.String("template", template),
		zap.String("message_sid", *resp.Sid),
	)
	return nil
}

var _ Notifier = (*TwilioNotifier)(nil)
