package cart

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"storefront-sync/internal/domain"
	"storefront-sync/internal/localcache"
	"storefront-sync/internal/logging"
	"storefront-sync/internal/metrics"
	"storefront-sync/internal/validation"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// DefaultTimeout bounds every remote call when Deps.Timeout is unset.
const DefaultTimeout = 5 * time.Second

type lineStore interface {
	List(ctx context.Context, userID string) ([]domain.CartLine, error)
	FindByProduct(ctx context.Context, userID string, productID int) (*domain.CartLine, error)
	Create(ctx context.Context, userID string, line domain.CartLine) (*domain.CartLine, error)
	UpdateQuantity(ctx context.Context, userID, id string, quantity int) error
	Delete(ctx context.Context, userID, id string) error
}

type addressStore interface {
	List(ctx context.Context, userID string) ([]domain.Address, error)
	Create(ctx context.Context, userID string, a domain.Address) (*domain.Address, error)
	Update(ctx context.Context, userID string, a domain.Address) (*domain.Address, error)
}

// Deps wires a Cart to its stores.
type Deps struct {
	Lines     lineStore
	Addresses addressStore
	Local     *localcache.Mirror
	Timeout   time.Duration
	Metrics   *metrics.Metrics
	Logger    logrus.FieldLogger
}

// Cart reconciles one session's cart and checkout address between memory,
// the local cache and the remote store. Every mutation writes remote first,
// then memory, then the cache, and mutations run one at a time.
type Cart struct {
	mu sync.Mutex

	lines     lineStore
	addresses addressStore
	local     *localcache.Mirror
	timeout   time.Duration
	metrics   *metrics.Metrics
	logger    logrus.FieldLogger

	session domain.Session
	items   []domain.CartLine
	address domain.Address
}

func New(d Deps) *Cart {
	if d.Timeout <= 0 {
		d.Timeout = DefaultTimeout
	}
	return &Cart{
		lines:     d.Lines,
		addresses: d.Addresses,
		local:     d.Local,
		timeout:   d.Timeout,
		metrics:   d.Metrics,
		logger:    logging.OrDiscard(d.Logger),
		items:     []domain.CartLine{},
	}
}

// Snapshot is a read-only copy of the reconciler state.
type Snapshot struct {
	Session   domain.Session    `json:"session"`
	Lines     []domain.CartLine `json:"lines"`
	Address   domain.Address    `json:"address"`
	ItemCount int               `json:"itemCount"`
	Total     string            `json:"total"`
}

// RestoreLocal loads the session flag, user, cart and address from the local
// cache for first paint. Absent or undecodable keys count as empty.
func (c *Cart) RestoreLocal(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap, err := c.local.Load(ctx)
	if err != nil {
		c.logger.WithError(err).Warn("cart: restore from local cache")
		return err
	}
	c.session = domain.Session{IsAuthenticated: snap.IsAuthenticated, User: snap.User}
	if !c.session.IsAuthenticated {
		c.session.User = nil
	}
	c.items = snap.CartItems
	c.address = snap.CheckoutAddress
	return nil
}

// SetSession records the authenticated user and mirrors it locally.
func (c *Cart) SetSession(ctx context.Context, s domain.Session) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !s.IsAuthenticated || s.User == nil {
		s = domain.Session{}
	}
	c.session = s
	return c.local.SaveSession(ctx, s)
}

func (c *Cart) Session() domain.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// AddLine adds product with qty clamped to [1,10]. A product already stored
// remotely for the user fails with DuplicateItem.
func (c *Cart) AddLine(ctx context.Context, product domain.Product, qty int) (line domain.CartLine, err error) {
	const op = "cart.AddLine"
	defer func() { c.record(op, err) }()

	c.mu.Lock()
	defer c.mu.Unlock()

	userID := c.session.UserID()
	if userID == "" {
		return domain.CartLine{}, domain.NewError(domain.KindNotAuthenticated, op, "")
	}
	if product.ID <= 0 {
		return domain.CartLine{}, domain.Invalid(op, map[string]string{"productId": "must be positive"})
	}

	err = c.remote(ctx, op, func(ctx context.Context) error {
		_, err := c.lines.FindByProduct(ctx, userID, product.ID)
		return err
	})
	switch {
	case err == nil:
		return domain.CartLine{}, domain.NewError(domain.KindDuplicateItem, op, "")
	case !errors.Is(err, domain.ErrRecordNotFound):
		return domain.CartLine{}, err
	}

	candidate := domain.CartLine{
		ProductID:      product.ID,
		Title:          product.Title,
		Image:          product.Image,
		UnitPrice:      fmt.Sprintf("%.2f", product.Price),
		Quantity:       domain.ClampQuantity(qty),
		RemoteRecordID: uuid.NewString(),
	}
	var created *domain.CartLine
	err = c.remote(ctx, op, func(ctx context.Context) error {
		var err error
		created, err = c.lines.Create(ctx, userID, candidate)
		return err
	})
	if err != nil {
		return domain.CartLine{}, err
	}

	if idx := c.indexOf(product.ID); idx >= 0 {
		c.items[idx] = *created
	} else {
		c.items = append(c.items, *created)
	}
	return *created, c.persistLocal(ctx)
}

// RemoveLine deletes the line for productID. A line that was never stored
// remotely fails with RecordNotFound and stays in the cart.
func (c *Cart) RemoveLine(ctx context.Context, productID int) (err error) {
	const op = "cart.RemoveLine"
	defer func() { c.record(op, err) }()

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.removeLocked(ctx, op, productID)
}

// ChangeQuantity applies delta to the line's quantity, bounded to [1,10]. A
// result below 1 removes the line and returns nil.
func (c *Cart) ChangeQuantity(ctx context.Context, productID, delta int) (line *domain.CartLine, err error) {
	const op = "cart.ChangeQuantity"
	defer func() { c.record(op, err) }()

	c.mu.Lock()
	defer c.mu.Unlock()

	userID := c.session.UserID()
	if userID == "" {
		return nil, domain.NewError(domain.KindNotAuthenticated, op, "")
	}
	idx := c.indexOf(productID)
	if idx < 0 || c.items[idx].RemoteRecordID == "" {
		return nil, domain.NewError(domain.KindRecordNotFound, op, "cart line not found")
	}
	current := c.items[idx]

	// Compare against the remaining headroom so extreme deltas cannot overflow.
	have := domain.ClampQuantity(current.Quantity)
	if delta < domain.MinLineQuantity-have {
		return nil, c.removeLocked(ctx, op, productID)
	}
	next := domain.MaxLineQuantity
	if delta < domain.MaxLineQuantity-have {
		next = have + delta
	}
	if next == current.Quantity {
		out := current
		return &out, nil
	}

	err = c.remote(ctx, op, func(ctx context.Context) error {
		return c.lines.UpdateQuantity(ctx, userID, current.RemoteRecordID, next)
	})
	if err != nil {
		return nil, err
	}

	c.items[idx].Quantity = next
	out := c.items[idx]
	return &out, c.persistLocal(ctx)
}

// LoadForSession replaces the in-memory cart with the user's remote records.
func (c *Cart) LoadForSession(ctx context.Context, userID string) (err error) {
	const op = "cart.LoadForSession"
	defer func() { c.record(op, err) }()

	c.mu.Lock()
	defer c.mu.Unlock()

	if userID == "" || c.session.UserID() != userID {
		return domain.NewError(domain.KindNotAuthenticated, op, "")
	}
	var remote []domain.CartLine
	err = c.remote(ctx, op, func(ctx context.Context) error {
		var err error
		remote, err = c.lines.List(ctx, userID)
		return err
	})
	if err != nil {
		return err
	}
	if remote == nil {
		remote = []domain.CartLine{}
	}
	c.items = remote
	return c.persistLocal(ctx)
}

// Clear empties the session state and every mirrored cache key. Memory is
// cleared even when the cache cannot be reached.
func (c *Cart) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.session = domain.Session{}
	c.items = []domain.CartLine{}
	c.address = domain.Address{}
	if err := c.local.Clear(ctx); err != nil {
		c.logger.WithError(err).Error("cart: clear local cache")
		return err
	}
	return nil
}

// SaveAddress validates a and stores it remotely, creating the record on the
// first save and updating it afterwards.
func (c *Cart) SaveAddress(ctx context.Context, a domain.Address) (saved domain.Address, err error) {
	const op = "cart.SaveAddress"
	defer func() { c.record(op, err) }()

	c.mu.Lock()
	defer c.mu.Unlock()

	userID := c.session.UserID()
	if userID == "" {
		return domain.Address{}, domain.NewError(domain.KindNotAuthenticated, op, "")
	}
	if err := validation.Struct(op, a); err != nil {
		return domain.Address{}, err
	}
	if a.RemoteRecordID == "" {
		a.RemoteRecordID = c.address.RemoteRecordID
	}

	var stored *domain.Address
	err = c.remote(ctx, op, func(ctx context.Context) error {
		var err error
		if a.RemoteRecordID != "" {
			stored, err = c.addresses.Update(ctx, userID, a)
			if !errors.Is(err, domain.ErrNotFound) {
				return err
			}
			// The remote record vanished under a cached id; store a new one.
			a.RemoteRecordID = ""
		}
		stored, err = c.addresses.Create(ctx, userID, a)
		return err
	})
	if err != nil {
		return domain.Address{}, err
	}

	c.address = *stored
	return c.address, c.local.SaveAddress(context.WithoutCancel(ctx), c.address)
}

// LoadAddress takes the user's first remote address, falling back to the
// cached one when the remote has none.
func (c *Cart) LoadAddress(ctx context.Context) (addr domain.Address, err error) {
	const op = "cart.LoadAddress"
	defer func() { c.record(op, err) }()

	c.mu.Lock()
	defer c.mu.Unlock()

	userID := c.session.UserID()
	if userID == "" {
		return domain.Address{}, domain.NewError(domain.KindNotAuthenticated, op, "")
	}
	var remote []domain.Address
	err = c.remote(ctx, op, func(ctx context.Context) error {
		var err error
		remote, err = c.addresses.List(ctx, userID)
		return err
	})
	if err != nil {
		return domain.Address{}, err
	}

	if len(remote) > 0 {
		c.address = remote[0]
	} else {
		cached, err := c.local.CheckoutAddress(ctx)
		if err != nil {
			return c.address, err
		}
		if !cached.IsZero() {
			// The remote holds no record, so any cached id is stale.
			cached.RemoteRecordID = ""
			c.address = cached
		} else {
			c.address.RemoteRecordID = ""
		}
	}
	if c.address.IsZero() {
		return c.address, nil
	}
	return c.address, c.local.SaveAddress(context.WithoutCancel(ctx), c.address)
}

// RecordConfirmation mirrors the lines of a confirmed order under the legacy
// confirmedProducts and orderConfirmed keys.
func (c *Cart) RecordConfirmation(ctx context.Context, lines []domain.OrderLine) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.local.SaveConfirmed(ctx, lines)
}

func (c *Cart) Address() domain.Address {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.address
}

// Lines returns a copy of the cart lines in insertion order.
func (c *Cart) Lines() []domain.CartLine {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.CartLine, len(c.items))
	copy(out, c.items)
	return out
}

func (c *Cart) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	lines := make([]domain.CartLine, len(c.items))
	copy(lines, c.items)
	var (
		count int
		total float64
	)
	for _, l := range lines {
		count += l.Quantity
		price, err := strconv.ParseFloat(l.UnitPrice, 64)
		if err != nil {
			c.logger.WithField("product_id", l.ProductID).Warn("cart: unparsable unit price")
			continue
		}
		total += price * float64(l.Quantity)
	}
	return Snapshot{
		Session:   c.session,
		Lines:     lines,
		Address:   c.address,
		ItemCount: count,
		Total:     fmt.Sprintf("%.2f", total),
	}
}

func (c *Cart) removeLocked(ctx context.Context, op string, productID int) error {
	userID := c.session.UserID()
	if userID == "" {
		return domain.NewError(domain.KindNotAuthenticated, op, "")
	}
	idx := c.indexOf(productID)
	if idx < 0 || c.items[idx].RemoteRecordID == "" {
		return domain.NewError(domain.KindRecordNotFound, op, "cart line not found")
	}
	recordID := c.items[idx].RemoteRecordID

	err := c.remote(ctx, op, func(ctx context.Context) error {
		return c.lines.Delete(ctx, userID, recordID)
	})
	switch {
	case errors.Is(err, domain.ErrNotFound):
		// Already gone remotely, e.g. an earlier delete whose reply was lost.
		c.logger.WithFields(logrus.Fields{"op": op, "product_id": productID}).Info("cart: remote line already removed")
	case err != nil:
		return err
	}

	kept := make([]domain.CartLine, 0, len(c.items)-1)
	for _, l := range c.items {
		if l.ProductID != productID {
			kept = append(kept, l)
		}
	}
	c.items = kept
	return c.persistLocal(ctx)
}

func (c *Cart) persistLocal(ctx context.Context) error {
	lines := make([]domain.CartLine, len(c.items))
	copy(lines, c.items)
	// The remote write already happened, so the mirror follows it even if
	// the caller has gone away.
	if err := c.local.SaveCart(context.WithoutCancel(ctx), lines); err != nil {
		c.logger.WithError(err).Warn("cart: persist to local cache")
		return err
	}
	return nil
}

// remote runs fn under the configured timeout and maps its error to a kind.
// Once started, a call is not cancelled with the caller's context, so memory
// and cache always follow the remote outcome.
func (c *Cart) remote(ctx context.Context, op string, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	defer cancel()

	err := fn(ctx)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrNotFound):
		return domain.Wrap(domain.KindRecordNotFound, op, err)
	case errors.Is(err, domain.ErrAlreadyExists):
		return domain.Wrap(domain.KindDuplicateItem, op, err)
	default:
		c.logger.WithError(err).WithField("op", op).Error("cart: remote call failed")
		return domain.Wrap(domain.KindRemoteUnavailable, op, err)
	}
}

func (c *Cart) record(op string, err error) {
	if err == nil {
		c.metrics.Operation(op, "ok")
		return
	}
	if kind := domain.KindOf(err); kind != "" {
		c.metrics.Operation(op, string(kind))
		return
	}
	c.metrics.Operation(op, "error")
}

func (c *Cart) indexOf(productID int) int {
	for i, l := range c.items {
		if l.ProductID == productID {
			return i
		}
	}
	return -1
}
