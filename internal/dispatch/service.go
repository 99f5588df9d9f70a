package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"propdesk/internal/device"
)

// Service sends outbound SMS and voicemail drops.
//
// Contract:
// - Provider-agnostic: all carrier specifics live behind Messenger.
// - Recipients are normalized and validated before any provider call.
// - A provider failure is returned to the caller; nothing is retried here.
type Service struct {
	messenger Messenger
	from      string
	logger    *slog.Logger
	clock     func() time.Time
}

// Messenger is the carrier-facing side of dispatch. Twilio in production.
type Messenger interface {
	SendSMS(ctx context.Context, from, to, body string) (reference string, err error)
	DropVoicemail(ctx context.Context, from, to, mediaURL string) (reference string, err error)
}

var (
	ErrEmptyPayload    = errors.New("dispatch: empty payload")
	ErrInvalidArgument = errors.New("dispatch: invalid argument")
	ErrSendFailed      = errors.New("dispatch: send failed")
)

func NewService(messenger Messenger, from string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{messenger: messenger, from: from, logger: logger, clock: time.Now}
}

// Request is a single outbound dispatch.
type Request struct {
	WorkspaceID string `json:"workspace_id"`
	Recipient   string `json:"recipient"`
	// Payload is the SMS body, or the media URL for a voicemail drop.
	Payload string `json:"payload"`
}

// Result reports the provider acknowledgment.
type Result struct {
	Success     bool      `json:"success"`
	ReferenceID string    `json:"reference_id,omitempty"`
	SentAt      time.Time `json:"sent_at"`
}

// SendSMS delivers a text message.
func (s *Service) SendSMS(ctx context.Context, req Request) (Result, error) {
	to, err := s.validate(req)
	if err != nil {
		return Result{}, err
	}

	ref, err := s.messenger.SendSMS(ctx, s.from, to, req.Payload)
	if err != nil {
		s.logger.Error("sms send failed", "workspace_id", req.WorkspaceID, "to", to, "error", err)
		return Result{}, errors.Join(ErrSendFailed, err)
	}
	return Result{Success: true, ReferenceID: ref, SentAt: s.clock().UTC()}, nil
}

// DropVoicemail leaves a pre-recorded message on the recipient's voicemail.
// Payload is the public URL of the recording.
func (s *Service) DropVoicemail(ctx context.Context, req Request) (Result, error) {
	to, err := s.validate(req)
	if err != nil {
		return Result{}, err
	}

	ref, err := s.messenger.DropVoicemail(ctx, s.from, to, req.Payload)
	if err != nil {
		s.logger.Error("voicemail drop failed", "workspace_id", req.WorkspaceID, "to", to, "error", err)
		return Result{}, errors.Join(ErrSendFailed, err)
	}
	return Result{Success: true, ReferenceID: ref, SentAt: s.clock().UTC()}, nil
}

func (s *Service) validate(req Request) (string, error) {
	if req.WorkspaceID == "" {
		return "", ErrInvalidArgument
	}
	if req.Payload == "" {
		return "", ErrEmptyPayload
	}
	return device.NormalizeNumber(req.Recipient)
}
