// services/auth_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/wfunc/cardroom/errs"
	"github.com/wfunc/cardroom/logger"
	"github.com/wfunc/cardroom/models"
	"github.com/wfunc/cardroom/persistence"
)

// DefaultTokenTTL is how long an unused token stays valid.
const DefaultTokenTTL = 7 * 24 * time.Hour

var (
	ErrBadTokenFormat = errs.New(errs.KindBadTokenFormat, "token is not a uuid")
	ErrInvalidToken   = errs.New(errs.KindInvalidToken, "invalid or expired token")
)

// AuthService issues and resolves session tokens. Every successful resolve
// slides the token's expiry forward.
type AuthService struct {
	tokens persistence.TokenStore
	ttl    time.Duration
	now    func() time.Time
}

func NewAuthService(tokens persistence.TokenStore, ttl time.Duration) *AuthService {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &AuthService{tokens: tokens, ttl: ttl, now: time.Now}
}

// Issue starts a new session for accountID.
func (s *AuthService) Issue(ctx context.Context, accountID string) (string, error) {
	token := &models.Token{
		Token:     uuid.NewString(),
		AccountID: accountID,
		CreatedAt: s.now(),
	}
	if err := s.tokens.CreateToken(ctx, token); err != nil {
		return "", errs.Internal("create token", err)
	}
	return token.Token, nil
}

// Resolve returns the account that owns token. An expired token is deleted.
func (s *AuthService) Resolve(ctx context.Context, token string) (string, error) {
	token, err := normalize(token)
	if err != nil {
		return "", err
	}

	t, err := s.tokens.ResolveToken(ctx, token)
	if errors.Is(err, persistence.ErrRecordNotFound) {
		return "", ErrInvalidToken
	}
	if err != nil {
		return "", errs.Internal("resolve token", err)
	}

	now := s.now()
	if now.Sub(t.CreatedAt) > s.ttl {
		if err := s.tokens.DeleteToken(ctx, token); err != nil {
			logger.Log.Warnf("Failed to delete expired token of account %s: %v", t.AccountID, err)
		}
		return "", ErrInvalidToken
	}
	if err := s.tokens.Touch(ctx, token, now); err != nil {
		return "", errs.Internal("touch token", err)
	}
	return t.AccountID, nil
}

// normalize returns the canonical form of a token.
func normalize(token string) (string, error) {
	parsed, err := uuid.Parse(token)
	if err != nil {
		return "", ErrBadTokenFormat
	}
	return parsed.String(), nil
}

// Logout ends the session of token.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if _, err := s.Resolve(ctx, token); err != nil {
		return err
	}
	token, _ = normalize(token)
	if err := s.tokens.DeleteToken(ctx, token); err != nil {
		return errs.Internal("delete token", err)
	}
	return nil
}

// LogoutAll ends every session of the account that owns token.
func (s *AuthService) LogoutAll(ctx context.Context, token string) error {
	accountID, err := s.Resolve(ctx, token)
	if err != nil {
		return err
	}
	if err := s.tokens.DeleteAllTokensFor(ctx, accountID); err != nil {
		return errs.Internal(fmt.Sprintf("delete tokens of %s", accountID), err)
	}
	logger.Log.Infof("All sessions of account %s ended", accountID)
	return nil
}
