package auth

import (
	"context"
	"crypto/subtle"
)

var _ Checker = (*SecretChecker)(nil)

type Checker interface {
	IsAllowed(ctx context.Context, token string) (bool, error)
}

// SecretChecker accepts requests carrying the shared app secret
// (the timer clients are first-party apps, there is no per-user login).
type SecretChecker struct {
	secret []byte
}

func NewSecretChecker(secret string) *SecretChecker {
	return &SecretChecker{secret: []byte(secret)}
}

func (c *SecretChecker) IsAllowed(_ context.Context, token string) (bool, error) {
	if len(c.secret) == 0 || token == "" {
		return false, nil
	}
	return subtle.ConstantTimeCompare(c.secret, []byte(token)) == 1, nil
}
