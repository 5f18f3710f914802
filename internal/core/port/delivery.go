package port

import (
	"context"

	"github.com/zqshi/thinkcraft-auth/internal/core/domain"
)

// CodeSender delivers a verification code to its recipient.
type CodeSender interface {
	SendCode(ctx context.Context, phone domain.Phone, code, purpose string) error
}
