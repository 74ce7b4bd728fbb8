package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"storefront-sync/internal/domain"
	"storefront-sync/internal/logging"
	accountrepo "storefront-sync/internal/repository/account"
	sessionrepo "storefront-sync/internal/repository/session"
	"storefront-sync/internal/validation"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// Options tunes a Service. Zero values fall back to defaults.
type Options struct {
	Secret      string
	SessionTTL  time.Duration
	Timeout     time.Duration
	PasswordMin int
	Logger      logrus.FieldLogger
}

// Service is the identity provider: accounts, login sessions and tokens.
type Service struct {
	accounts    accountrepo.Repository
	tokens      *tokenManager
	sessionTTL  time.Duration
	timeout     time.Duration
	passwordMin int
	logger      logrus.FieldLogger
}

func New(accounts accountrepo.Repository, sessions sessionrepo.Repository, opts Options) *Service {
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 48 * time.Hour
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.PasswordMin <= 0 {
		opts.PasswordMin = 8
	}
	return &Service{
		accounts:    accounts,
		tokens:      newTokenManager(sessions, opts.Secret),
		sessionTTL:  opts.SessionTTL,
		timeout:     opts.Timeout,
		passwordMin: opts.PasswordMin,
		logger:      logging.OrDiscard(opts.Logger),
	}
}

// SignupInput captures fields expected by the signup endpoint.
type SignupInput struct {
	Name     string `json:"name" validate:"max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Signup registers a new account.
func (s *Service) Signup(ctx context.Context, in SignupInput) (*domain.UserRef, error) {
	const op = "identity.Signup"
	in.Email = strings.TrimSpace(strings.ToLower(in.Email))
	in.Name = strings.TrimSpace(in.Name)
	in.Password = strings.TrimSpace(in.Password)
	if err := validation.Struct(op, in); err != nil {
		return nil, err
	}
	if err := validatePassword(in.Password, s.passwordMin); err != nil {
		return nil, domain.Invalid(op, map[string]string{"password": err.Error()})
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("%s: hash password: %w", op, err)
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()
	acct, err := s.accounts.Create(ctx, domain.Account{
		Email:        in.Email,
		Name:         in.Name,
		PasswordHash: string(hashed),
	})
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			return nil, domain.Invalid(op, map[string]string{"email": "is already registered"})
		}
		s.logger.WithError(err).Error("identity: create account")
		return nil, domain.Wrap(domain.KindRemoteUnavailable, op, err)
	}
	ref := acct.Ref()
	return &ref, nil
}

// Login validates credentials and opens a session. The returned token carries
// the session id, see SessionID.
func (s *Service) Login(ctx context.Context, email, password string) (string, *domain.UserRef, error) {
	const op = "identity.Login"
	email = strings.TrimSpace(email)
	password = strings.TrimSpace(password)
	if email == "" || password == "" {
		return "", nil, domain.NewError(domain.KindAuth, op, "")
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	acct, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", nil, domain.NewError(domain.KindAuth, op, "")
		}
		s.logger.WithError(err).Error("identity: lookup account")
		return "", nil, domain.Wrap(domain.KindRemoteUnavailable, op, err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(password)); err != nil {
		return "", nil, domain.NewError(domain.KindAuth, op, "")
	}

	token, _, err := s.tokens.Issue(ctx, *acct, s.sessionTTL)
	if err != nil {
		s.logger.WithError(err).WithField("account_id", acct.ID).Error("identity: issue session")
		return "", nil, domain.Wrap(domain.KindRemoteUnavailable, op, err)
	}
	ref := acct.Ref()
	return token, &ref, nil
}

// CurrentUser resolves token to its user. A missing, expired, revoked or
// malformed token yields (nil, nil); only lookup failures are errors.
func (s *Service) CurrentUser(ctx context.Context, token string) (*domain.UserRef, error) {
	const op = "identity.CurrentUser"
	if strings.TrimSpace(token) == "" {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	meta, ok, err := s.tokens.Validate(ctx, token)
	if err != nil {
		return nil, domain.Wrap(domain.KindRemoteUnavailable, op, err)
	}
	if !ok {
		return nil, nil
	}
	acct, err := s.accounts.GetByID(ctx, meta.AccountID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, domain.Wrap(domain.KindRemoteUnavailable, op, err)
	}
	ref := acct.Ref()
	return &ref, nil
}

// Logout terminates the remote session behind token.
func (s *Service) Logout(ctx context.Context, token string) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()
	if err := s.tokens.Revoke(ctx, token); err != nil {
		return domain.Wrap(domain.KindRemoteUnavailable, "identity.Logout", err)
	}
	return nil
}

// SessionID extracts the session id from a signed token without consulting
// the session store. Expired tokens still yield their id.
func (s *Service) SessionID(token string) (string, bool) {
	meta, ok := s.tokens.Parse(token, true)
	if !ok {
		return "", false
	}
	return meta.SessionID, true
}

// SessionTTL exposes the session lifetime.
func (s *Service) SessionTTL() time.Duration {
	return s.sessionTTL
}

func validatePassword(p string, min int) error {
	trimmed := strings.TrimSpace(p)
	if len(trimmed) < min {
		return fmt.Errorf("must be at least %d characters", min)
	}
	hasUpper := false
	hasLower := false
	hasDigit := false
	for _, r := range trimmed {
		switch {
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= 'a' && r <= 'z':
			hasLower = true
		case r >= '0' && r <= '9':
			hasDigit = true
		}
	}
	if !hasUpper || !hasLower || !hasDigit {
		return errors.New("must contain at least 1 uppercase letter, 1 lowercase letter, and 1 number")
	}
	return nil
}
