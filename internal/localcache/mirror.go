package localcache

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"

	"storefront-sync/internal/domain"
	"storefront-sync/internal/logging"

	"github.com/sirupsen/logrus"
)

// Keys mirrored per session.
const (
	KeyCartItems         = "cartItems"
	KeyIsAuthenticated   = "isAuthenticated"
	KeyUser              = "user"
	KeyCheckoutAddress   = "checkoutAddress"
	KeyConfirmedProducts = "confirmedProducts"
	KeyOrderConfirmed    = "orderConfirmed"
	KeyOrderAddress      = "orderAddress"
)

// AllKeys lists every key removed on logout.
var AllKeys = []string{
	KeyIsAuthenticated,
	KeyUser,
	KeyCartItems,
	KeyConfirmedProducts,
	KeyOrderAddress,
	KeyCheckoutAddress,
	KeyOrderConfirmed,
}

// Snapshot is everything the mirror holds for one session.
type Snapshot struct {
	IsAuthenticated   bool
	User              *domain.UserRef
	CartItems         []domain.CartLine
	CheckoutAddress   domain.Address
	ConfirmedProducts []domain.OrderLine
	OrderConfirmed    bool
}

// Mirror is the typed view of one session's cache namespace. Reads treat
// absent keys and undecodable values as empty.
type Mirror struct {
	store     Store
	namespace string
	logger    logrus.FieldLogger
}

func NewMirror(store Store, sessionID string, logger logrus.FieldLogger) *Mirror {
	return &Mirror{
		store:     store,
		namespace: sessionID,
		logger:    logging.OrDiscard(logger).WithField("session", sessionID),
	}
}

// Load reads every key. Only store failures are returned as errors.
func (m *Mirror) Load(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	if err := m.read(ctx, KeyIsAuthenticated, &snap.IsAuthenticated); err != nil {
		return Snapshot{}, err
	}
	if err := m.read(ctx, KeyUser, &snap.User); err != nil {
		return Snapshot{}, err
	}
	if err := m.read(ctx, KeyCartItems, &snap.CartItems); err != nil {
		return Snapshot{}, err
	}
	if err := m.read(ctx, KeyCheckoutAddress, &snap.CheckoutAddress); err != nil {
		return Snapshot{}, err
	}
	if err := m.read(ctx, KeyConfirmedProducts, &snap.ConfirmedProducts); err != nil {
		return Snapshot{}, err
	}
	if err := m.read(ctx, KeyOrderConfirmed, &snap.OrderConfirmed); err != nil {
		return Snapshot{}, err
	}
	if snap.CartItems == nil {
		snap.CartItems = []domain.CartLine{}
	}
	return snap, nil
}

// CartItems reads only the cart key.
func (m *Mirror) CartItems(ctx context.Context) ([]domain.CartLine, error) {
	var lines []domain.CartLine
	if err := m.read(ctx, KeyCartItems, &lines); err != nil {
		return nil, err
	}
	if lines == nil {
		lines = []domain.CartLine{}
	}
	return lines, nil
}

// CheckoutAddress reads only the address key.
func (m *Mirror) CheckoutAddress(ctx context.Context) (domain.Address, error) {
	var a domain.Address
	if err := m.read(ctx, KeyCheckoutAddress, &a); err != nil {
		return domain.Address{}, err
	}
	return a, nil
}

func (m *Mirror) SaveCart(ctx context.Context, lines []domain.CartLine) error {
	if lines == nil {
		lines = []domain.CartLine{}
	}
	return m.write(ctx, KeyCartItems, lines)
}

func (m *Mirror) SaveSession(ctx context.Context, s domain.Session) error {
	if err := m.write(ctx, KeyIsAuthenticated, s.IsAuthenticated); err != nil {
		return err
	}
	return m.write(ctx, KeyUser, s.User)
}

func (m *Mirror) SaveAddress(ctx context.Context, a domain.Address) error {
	return m.write(ctx, KeyCheckoutAddress, a)
}

func (m *Mirror) SaveConfirmed(ctx context.Context, lines []domain.OrderLine) error {
	if err := m.write(ctx, KeyConfirmedProducts, lines); err != nil {
		return err
	}
	return m.write(ctx, KeyOrderConfirmed, true)
}

// Clear removes every mirrored key for the session.
func (m *Mirror) Clear(ctx context.Context) error {
	if err := m.store.Delete(ctx, m.namespace, AllKeys...); err != nil {
		return domain.Wrap(domain.KindCacheUnavailable, "localcache.clear", err)
	}
	return nil
}

func (m *Mirror) read(ctx context.Context, key string, dst any) error {
	raw, err := m.store.Get(ctx, m.namespace, key)
	if err != nil {
		if errors.Is(err, ErrMiss) {
			return nil
		}
		return domain.Wrap(domain.KindCacheUnavailable, "localcache.read "+key, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		m.logger.WithError(err).WithField("key", key).Warn("localcache: ignoring undecodable value")
		v := reflect.ValueOf(dst).Elem()
		v.Set(reflect.Zero(v.Type()))
		return nil
	}
	return nil
}

func (m *Mirror) write(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return domain.Wrap(domain.KindCacheUnavailable, "localcache.encode "+key, err)
	}
	if err := m.store.Set(ctx, m.namespace, key, raw); err != nil {
		return domain.Wrap(domain.KindCacheUnavailable, "localcache.write "+key, err)
	}
	return nil
}
