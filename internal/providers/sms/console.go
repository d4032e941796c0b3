package sms

import (
	"context"
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

// ConsoleSender logs outbound messages instead of delivering them. It stands
// in for a real SMS gateway in development and tests while still minting
// unique message ids, so the reply-correlation paths behave as in production.
type ConsoleSender struct {
	log *zap.Logger
}

func NewConsoleSender(log *zap.Logger) *ConsoleSender {
	return &ConsoleSender{log: log.Named("providers.sms")}
}

func (s *ConsoleSender) Send(ctx context.Context, phone, text string) (string, error) {
	messageID := "msg_" + ulid.MustNew(ulid.Timestamp(time.Now().UTC()), rand.Reader).String()
	s.log.Info("sms sent",
		zap.String("phone", phone),
		zap.String("message_id", messageID),
		zap.String("text", text),
	)
	return messageID, nil
}
