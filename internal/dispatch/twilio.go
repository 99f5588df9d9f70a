package dispatch

import (
	"context"
	"fmt"

	"github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
)

// TwilioMessenger delivers dispatches through the Twilio REST API.
type TwilioMessenger struct {
	client *twilio.RestClient
}

func NewTwilioMessenger(accountSID, authToken string) *TwilioMessenger {
	return &TwilioMessenger{
		client: twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: accountSID,
			Password: authToken,
		}),
	}
}

func (m *TwilioMessenger) SendSMS(ctx context.Context, from, to, body string) (string, error) {
	params := &openapi.CreateMessageParams{}
	params.SetFrom(from)
	params.SetTo(to)
	params.SetBody(body)

	msg, err := m.client.Api.CreateMessage(params)
	if err != nil {
		return "", fmt.Errorf("twilio message: %w", err)
	}
	if msg.Sid == nil {
		return "", fmt.Errorf("twilio message: no sid returned")
	}
	return *msg.Sid, nil
}

// DropVoicemail places a call that plays the recording, relying on the
// callee's voicemail to pick up.
func (m *TwilioMessenger) DropVoicemail(ctx context.Context, from, to, mediaURL string) (string, error) {
	params := &openapi.CreateCallParams{}
	params.SetFrom(from)
	params.SetTo(to)
	params.SetTwiml(fmt.Sprintf(`<Response><Pause length="1"/><Play>%s</Play></Response>`, mediaURL))
	params.SetMachineDetection("Enable")

	call, err := m.client.Api.CreateCall(params)
	if err != nil {
		return "", fmt.Errorf("twilio voicemail drop: %w", err)
	}
	if call.Sid == nil {
		return "", fmt.Errorf("twilio voicemail drop: no sid returned")
	}
	return *call.Sid, nil
}
