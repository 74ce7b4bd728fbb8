package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"storefront-sync/internal/domain"
	"storefront-sync/internal/logging"
	"storefront-sync/internal/metrics"
	"storefront-sync/internal/service/cart"
	"storefront-sync/internal/service/checkout"
	"storefront-sync/internal/service/identity"

	"github.com/sirupsen/logrus"
)

type identityProvider interface {
	Signup(ctx context.Context, in identity.SignupInput) (*domain.UserRef, error)
	Login(ctx context.Context, email, password string) (string, *domain.UserRef, error)
	CurrentUser(ctx context.Context, token string) (*domain.UserRef, error)
	Logout(ctx context.Context, token string) error
	SessionID(token string) (string, bool)
}

// Deps wires a Manager. NewCart builds a reconciler bound to a session's
// cache namespace; NewCheckout builds a fresh orchestrator over it.
type Deps struct {
	Identity    identityProvider
	NewCart     func(sessionID string) *cart.Cart
	NewCheckout func(c *cart.Cart) *checkout.Orchestrator
	Metrics     *metrics.Metrics
	Logger      logrus.FieldLogger
}

// Handle is one live session: its user, reconciler and current checkout.
type Handle struct {
	Token string
	ID    string
	User  domain.UserRef
	Cart  *cart.Cart

	mu       sync.Mutex
	checkout *checkout.Orchestrator
	lastSeen time.Time
}

// Checkout returns the current orchestrator or nil when none was begun.
func (h *Handle) Checkout() *checkout.Orchestrator {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.checkout
}

func (h *Handle) touch(now time.Time) {
	h.mu.Lock()
	h.lastSeen = now
	h.mu.Unlock()
}

// Manager owns the registry of live sessions keyed by token.
type Manager struct {
	identity    identityProvider
	newCart     func(sessionID string) *cart.Cart
	newCheckout func(c *cart.Cart) *checkout.Orchestrator
	metrics     *metrics.Metrics
	logger      logrus.FieldLogger

	mu      sync.RWMutex
	handles map[string]*Handle
}

func NewManager(d Deps) *Manager {
	return &Manager{
		identity:    d.Identity,
		newCart:     d.NewCart,
		newCheckout: d.NewCheckout,
		metrics:     d.Metrics,
		logger:      logging.OrDiscard(d.Logger),
		handles:     make(map[string]*Handle),
	}
}

func (m *Manager) Signup(ctx context.Context, in identity.SignupInput) (*domain.UserRef, error) {
	user, err := m.identity.Signup(ctx, in)
	m.record("session.Signup", err)
	return user, err
}

// Login authenticates, mirrors the session locally and pulls the remote
// cart. A non-nil Handle with an error means the login itself succeeded but
// mirroring or the cart load did not.
func (m *Manager) Login(ctx context.Context, email, password string) (h *Handle, err error) {
	const op = "session.Login"
	defer func() { m.record(op, err) }()

	token, user, err := m.identity.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}
	sid, ok := m.identity.SessionID(token)
	if !ok {
		return nil, domain.NewError(domain.KindAuth, op, "")
	}

	h = &Handle{Token: token, ID: sid, User: *user, Cart: m.newCart(sid), lastSeen: time.Now()}
	m.mu.Lock()
	m.handles[token] = h
	m.mu.Unlock()

	log := m.logger.WithFields(logrus.Fields{"session": sid, "user_id": user.ID})
	sessErr := h.Cart.SetSession(ctx, domain.Session{IsAuthenticated: true, User: user})
	if sessErr != nil {
		log.WithError(sessErr).Warn("session: mirror login")
	}
	if err := h.Cart.LoadForSession(ctx, user.ID); err != nil {
		log.WithError(err).Warn("session: load cart after login")
		return h, err
	}
	log.Info("session: logged in")
	return h, sessErr
}

// CurrentUser resolves token to a user without touching the registry.
func (m *Manager) CurrentUser(ctx context.Context, token string) (*domain.UserRef, error) {
	return m.identity.CurrentUser(ctx, token)
}

// Resolve returns the live handle for token. Every call re-checks the token
// with the identity provider. After a restart the handle is rebuilt from the
// local cache and then the remote cart.
func (m *Manager) Resolve(ctx context.Context, token string) (*Handle, error) {
	const op = "session.Resolve"
	user, err := m.identity.CurrentUser(ctx, token)
	if err != nil {
		return nil, err
	}
	if user == nil {
		m.forget(token)
		return nil, domain.NewError(domain.KindNotAuthenticated, op, "")
	}

	m.mu.RLock()
	h, ok := m.handles[token]
	m.mu.RUnlock()
	if ok {
		h.touch(time.Now())
		return h, nil
	}

	sid, ok := m.identity.SessionID(token)
	if !ok {
		return nil, domain.NewError(domain.KindNotAuthenticated, op, "")
	}
	h = &Handle{Token: token, ID: sid, User: *user, Cart: m.newCart(sid), lastSeen: time.Now()}
	log := m.logger.WithFields(logrus.Fields{"session": sid, "user_id": user.ID})
	if err := h.Cart.RestoreLocal(ctx); err != nil {
		log.WithError(err).Warn("session: restore local state")
	}
	if err := h.Cart.SetSession(ctx, domain.Session{IsAuthenticated: true, User: user}); err != nil {
		log.WithError(err).Warn("session: mirror resumed session")
	}
	if err := h.Cart.LoadForSession(ctx, user.ID); err != nil && !errors.Is(err, domain.ErrCacheUnavailable) {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.handles[token]; ok {
		return existing, nil
	}
	m.handles[token] = h
	log.Info("session: resumed")
	return h, nil
}

// Logout ends the remote session and clears all local state for it. Local
// state is cleared even when the remote call fails; that failure is still
// returned.
func (m *Manager) Logout(ctx context.Context, token string) (err error) {
	const op = "session.Logout"
	defer func() { m.record(op, err) }()

	sid, ok := m.identity.SessionID(token)
	if !ok {
		return domain.NewError(domain.KindNotAuthenticated, op, "")
	}
	remoteErr := m.identity.Logout(ctx, token)

	m.mu.Lock()
	h, ok := m.handles[token]
	delete(m.handles, token)
	m.mu.Unlock()

	c := m.newCart(sid)
	if ok {
		c = h.Cart
	}
	clearErr := c.Clear(ctx)

	log := m.logger.WithField("session", sid)
	if remoteErr != nil {
		log.WithError(remoteErr).Warn("session: remote logout failed, local state cleared")
		return remoteErr
	}
	if clearErr != nil {
		return clearErr
	}
	log.Info("session: logged out")
	return nil
}

// BeginCheckout starts a checkout for h, replacing a confirmed one.
func (m *Manager) BeginCheckout(ctx context.Context, h *Handle) (*checkout.Orchestrator, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.checkout == nil || h.checkout.State() == checkout.StateConfirmed {
		h.checkout = m.newCheckout(h.Cart)
	}
	if err := h.checkout.Begin(ctx); err != nil {
		return h.checkout, err
	}
	return h.checkout, nil
}

// Prune drops handles unused for longer than idle. Their cache namespaces are
// kept so the session can be resumed.
func (m *Manager) Prune(idle time.Duration) int {
	cutoff := time.Now().Add(-idle)
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for token, h := range m.handles {
		h.mu.Lock()
		stale := h.lastSeen.Before(cutoff)
		h.mu.Unlock()
		if stale {
			delete(m.handles, token)
			n++
		}
	}
	return n
}

// Len reports the number of live handles.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.handles)
}

func (m *Manager) forget(token string) {
	m.mu.Lock()
	delete(m.handles, token)
	m.mu.Unlock()
}

func (m *Manager) record(op string, err error) {
	switch {
	case err == nil:
		m.metrics.Operation(op, "ok")
	case domain.KindOf(err) != "":
		m.metrics.Operation(op, string(domain.KindOf(err)))
	default:
		m.metrics.Operation(op, "error")
	}
}
