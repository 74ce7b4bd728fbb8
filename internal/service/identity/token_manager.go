package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront-sync/internal/domain"
	sessionrepo "storefront-sync/internal/repository/session"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const issuer = "storefront-sync"

type claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

type tokenMeta struct {
	SessionID string
	AccountID string
	ExpiresAt time.Time
}

// tokenManager signs session tokens and keeps their revocable server side
// half in the sessions table. The token's jti is the session row id.
type tokenManager struct {
	repo   sessionrepo.Repository
	secret []byte
}

func newTokenManager(repo sessionrepo.Repository, secret string) *tokenManager {
	return &tokenManager{repo: repo, secret: []byte(secret)}
}

func (m *tokenManager) Issue(ctx context.Context, acct domain.Account, ttl time.Duration) (string, tokenMeta, error) {
	now := time.Now().UTC()
	expiresAt := now.Add(ttl)
	for i := 0; i < 5; i++ {
		sessionID := uuid.NewString()
		err := m.repo.Create(ctx, sessionrepo.Record{
			ID:        sessionID,
			AccountID: acct.ID,
			ExpiresAt: expiresAt,
		})
		if errors.Is(err, domain.ErrAlreadyExists) {
			continue
		}
		if err != nil {
			return "", tokenMeta{}, err
		}

		token := jwt.NewWithClaims(jwt.SigningMethodHS256, &claims{
			Email: acct.Email,
			RegisteredClaims: jwt.RegisteredClaims{
				ID:        sessionID,
				Subject:   acct.ID,
				Issuer:    issuer,
				IssuedAt:  jwt.NewNumericDate(now),
				ExpiresAt: jwt.NewNumericDate(expiresAt),
			},
		})
		signed, err := token.SignedString(m.secret)
		if err != nil {
			return "", tokenMeta{}, fmt.Errorf("sign session token: %w", err)
		}
		return signed, tokenMeta{SessionID: sessionID, AccountID: acct.ID, ExpiresAt: expiresAt}, nil
	}
	return "", tokenMeta{}, errors.New("session id collision")
}

// Parse checks the signature and, unless skipExpiry is set, the expiry. It
// never touches the session store.
func (m *tokenManager) Parse(token string, skipExpiry bool) (tokenMeta, bool) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
	}
	if skipExpiry {
		opts = append(opts, jwt.WithoutClaimsValidation())
	}
	parsed, err := jwt.ParseWithClaims(token, &claims{}, func(*jwt.Token) (any, error) {
		return m.secret, nil
	}, opts...)
	if err != nil || !parsed.Valid {
		return tokenMeta{}, false
	}
	c, ok := parsed.Claims.(*claims)
	if !ok || c.ID == "" || c.Subject == "" {
		return tokenMeta{}, false
	}
	meta := tokenMeta{SessionID: c.ID, AccountID: c.Subject}
	if c.ExpiresAt != nil {
		meta.ExpiresAt = c.ExpiresAt.Time
	}
	return meta, true
}

// Validate reports whether token is well formed and its session row is live.
// The error is non-nil only when the session store could not be consulted.
func (m *tokenManager) Validate(ctx context.Context, token string) (tokenMeta, bool, error) {
	meta, ok := m.Parse(token, false)
	if !ok {
		return tokenMeta{}, false, nil
	}
	rec, err := m.repo.Get(ctx, meta.SessionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return tokenMeta{}, false, nil
		}
		return tokenMeta{}, false, err
	}
	if rec.AccountID != meta.AccountID {
		return tokenMeta{}, false, nil
	}
	if time.Now().After(rec.ExpiresAt) {
		_ = m.repo.Delete(ctx, rec.ID)
		return tokenMeta{}, false, nil
	}
	meta.ExpiresAt = rec.ExpiresAt
	return meta, true, nil
}

// Revoke deletes the session row behind token. Expired tokens are still
// revoked; unknown sessions are not an error.
func (m *tokenManager) Revoke(ctx context.Context, token string) error {
	meta, ok := m.Parse(token, true)
	if !ok {
		return nil
	}
	if err := m.repo.Delete(ctx, meta.SessionID); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	return nil
}
