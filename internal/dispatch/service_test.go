package dispatch

import (
	"context"
	"errors"
	"testing"

	"propdesk/internal/device"
)

type fakeMessenger struct {
	sms        []string
	voicemails []string
	failWith   error
}

func (f *fakeMessenger) SendSMS(ctx context.Context, from, to, body string) (string, error) {
	if f.failWith != nil {
		return "", f.failWith
	}
	f.sms = append(f.sms, to+":"+body)
	return "SM123", nil
}

func (f *fakeMessenger) DropVoicemail(ctx context.Context, from, to, mediaURL string) (string, error) {
	if f.failWith != nil {
		return "", f.failWith
	}
	f.voicemails = append(f.voicemails, to+":"+mediaURL)
	return "CA456", nil
}

func TestSendSMS(t *testing.T) {
	m := &fakeMessenger{}
	s := NewService(m, "+15550000000", nil)

	res, err := s.SendSMS(context.Background(), Request{
		WorkspaceID: "ws1",
		Recipient:   "(404) 555-1234",
		Payload:     "Your showing is confirmed for 3pm.",
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if !res.Success || res.ReferenceID != "SM123" {
		t.Fatalf("unexpected result: %+v", res)
	}
	// Recipient normalized before hitting the provider.
	if m.sms[0] != "4045551234:Your showing is confirmed for 3pm." {
		t.Fatalf("unexpected provider call: %q", m.sms[0])
	}
}

func TestSendSMSValidation(t *testing.T) {
	s := NewService(&fakeMessenger{}, "+15550000000", nil)

	if _, err := s.SendSMS(context.Background(), Request{WorkspaceID: "ws1", Recipient: "4045551234"}); err != ErrEmptyPayload {
		t.Fatalf("expected ErrEmptyPayload, got %v", err)
	}
	if _, err := s.SendSMS(context.Background(), Request{WorkspaceID: "ws1", Recipient: "12", Payload: "hi"}); err != device.ErrInvalidNumber {
		t.Fatalf("expected ErrInvalidNumber, got %v", err)
	}
	if _, err := s.SendSMS(context.Background(), Request{Recipient: "4045551234", Payload: "hi"}); err != ErrInvalidArgument {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestSendSMSProviderFailure(t *testing.T) {
	m := &fakeMessenger{failWith: errors.New("queue full")}
	s := NewService(m, "+15550000000", nil)

	_, err := s.SendSMS(context.Background(), Request{WorkspaceID: "ws1", Recipient: "4045551234", Payload: "hi"})
	if !errors.Is(err, ErrSendFailed) {
		t.Fatalf("expected ErrSendFailed, got %v", err)
	}
}

func TestDropVoicemail(t *testing.T) {
	m := &fakeMessenger{}
	s := NewService(m, "+15550000000", nil)

	res, err := s.DropVoicemail(context.Background(), Request{
		WorkspaceID: "ws1",
		Recipient:   "+1 404 555 9876",
		Payload:     "https://media.example.com/recordings/ws1/abc.mp3",
	})
	if err != nil {
		t.Fatalf("drop: %v", err)
	}
	if res.ReferenceID != "CA456" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if m.voicemails[0] != "+14045559876:https://media.example.com/recordings/ws1/abc.mp3" {
		t.Fatalf("unexpected provider call: %q", m.voicemails[0])
	}
}
