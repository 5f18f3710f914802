package sms

import (
	"context"

	"go.uber.org/zap"

	"github.com/zqshi/thinkcraft-auth/internal/core/domain"
	"github.com/zqshi/thinkcraft-auth/internal/core/port"
)

// LogSender writes outbound verification codes to the log instead of a
// provider. Development and test environments use it; real providers plug in
// behind the same port.
type LogSender struct {
	logger *zap.Logger
}

var _ port.CodeSender = (*LogSender)(nil)

// NewLogSender builds a sender that logs deliveries.
func NewLogSender(logger *zap.Logger) *LogSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSender{logger: logger}
}

// SendCode logs the delivery with the phone masked. The code itself is logged
// so local flows can be completed without a provider; production senders must
// never do this.
func (s *LogSender) SendCode(_ context.Context, phone domain.Phone, code, purpose string) error {
	s.logger.Info("verification code dispatched",
		zap.String("phone", phone.Masked()),
		zap.String("purpose", purpose),
		zap.String("code", code),
	)
	return nil
}
