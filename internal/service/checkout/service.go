package checkout

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"storefront-sync/internal/domain"
	"storefront-sync/internal/logging"
	"storefront-sync/internal/metrics"
	"storefront-sync/internal/validation"

	"github.com/sirupsen/logrus"
)

// State is a checkout step.
type State string

const (
	StateIdle              State = "Idle"
	StateDrafting          State = "Drafting"
	StateAddressIncomplete State = "AddressIncomplete"
	StateAddressComplete   State = "AddressComplete"
	StateConfirming        State = "Confirming"
	StateConfirmed         State = "Confirmed"
)

type cartView interface {
	Session() domain.Session
	Lines() []domain.CartLine
	Address() domain.Address
	SaveAddress(ctx context.Context, a domain.Address) (domain.Address, error)
	RemoveLine(ctx context.Context, productID int) error
	RecordConfirmation(ctx context.Context, lines []domain.OrderLine) error
}

type orderStore interface {
	CreateBatch(ctx context.Context, records []domain.OrderRecord) ([]domain.OrderRecord, error)
}

// Deps wires an Orchestrator. NewOrderID defaults to the package NewOrderID.
type Deps struct {
	Cart       cartView
	Orders     orderStore
	Timeout    time.Duration
	NewOrderID func() (string, error)
	Metrics    *metrics.Metrics
	Logger     logrus.FieldLogger
}

// Orchestrator drives one checkout attempt for one session. Once Confirmed
// it accepts no further transitions.
type Orchestrator struct {
	mu sync.Mutex

	cart       cartView
	orders     orderStore
	timeout    time.Duration
	newOrderID func() (string, error)
	metrics    *metrics.Metrics
	logger     logrus.FieldLogger

	state State
	order *domain.Order
}

func New(d Deps) *Orchestrator {
	if d.Timeout <= 0 {
		d.Timeout = 5 * time.Second
	}
	if d.NewOrderID == nil {
		d.NewOrderID = NewOrderID
	}
	return &Orchestrator{
		cart:       d.Cart,
		orders:     d.Orders,
		timeout:    d.Timeout,
		newOrderID: d.NewOrderID,
		metrics:    d.Metrics,
		logger:     logging.OrDiscard(d.Logger),
		state:      StateIdle,
	}
}

func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Order returns the confirmed order, or nil before confirmation.
func (o *Orchestrator) Order() *domain.Order {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.order == nil {
		return nil
	}
	out := *o.order
	out.Lines = append([]domain.OrderLine(nil), o.order.Lines...)
	return &out
}

// Begin enters Drafting for a non-empty cart and evaluates any saved address.
func (o *Orchestrator) Begin(ctx context.Context) (err error) {
	const op = "checkout.Begin"
	defer func() { o.record(op, err) }()

	o.mu.Lock()
	defer o.mu.Unlock()

	switch o.state {
	case StateIdle, StateDrafting, StateAddressIncomplete, StateAddressComplete:
	default:
		return transitionError(op, o.state, StateDrafting)
	}
	if o.cart.Session().UserID() == "" {
		return domain.NewError(domain.KindNotAuthenticated, op, "")
	}
	if len(o.cart.Lines()) == 0 {
		return domain.Invalid(op, map[string]string{"cart": "is empty"})
	}

	o.state = StateDrafting
	if saved := o.cart.Address(); !saved.IsZero() {
		if validation.Struct(op, saved) == nil && saved.CVVPresent {
			o.state = StateAddressComplete
		} else {
			o.state = StateAddressIncomplete
		}
	}
	return nil
}

// EditAddress checks the form and, when complete, saves the masked address
// through the cart. Field problems leave the checkout in AddressIncomplete.
func (o *Orchestrator) EditAddress(ctx context.Context, form AddressForm) (addr domain.Address, err error) {
	const op = "checkout.EditAddress"
	defer func() { o.record(op, err) }()

	o.mu.Lock()
	defer o.mu.Unlock()

	switch o.state {
	case StateDrafting, StateAddressIncomplete, StateAddressComplete:
	default:
		return domain.Address{}, transitionError(op, o.state, StateAddressComplete)
	}

	form = form.trimmed()
	if err := validation.Struct(op, form); err != nil {
		o.state = StateAddressIncomplete
		return domain.Address{}, err
	}

	next := form.Address()
	next.RemoteRecordID = o.cart.Address().RemoteRecordID
	saved, err := o.cart.SaveAddress(ctx, next)
	if err != nil && !errors.Is(err, domain.ErrCacheUnavailable) {
		return domain.Address{}, err
	}
	o.state = StateAddressComplete
	return saved, err
}

// Confirm writes one checkout record per cart line under a single new order
// id, then empties the cart. A failed write returns the checkout to
// AddressComplete. Errors after the order is stored come back together with
// the order.
func (o *Orchestrator) Confirm(ctx context.Context) (order *domain.Order, err error) {
	const op = "checkout.Confirm"
	defer func() { o.record(op, err) }()

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state != StateAddressComplete {
		return nil, transitionError(op, o.state, StateConfirming)
	}
	userID := o.cart.Session().UserID()
	if userID == "" {
		return nil, domain.NewError(domain.KindNotAuthenticated, op, "")
	}
	lines := o.cart.Lines()
	if len(lines) == 0 {
		return nil, domain.Invalid(op, map[string]string{"cart": "is empty"})
	}

	o.state = StateConfirming
	stored, err := o.persist(ctx, op, userID, lines)
	if err != nil {
		o.state = StateAddressComplete
		return nil, err
	}
	o.state = StateConfirmed
	o.order = stored

	var cleanup error
	for _, l := range lines {
		if err := o.cart.RemoveLine(ctx, l.ProductID); err != nil {
			o.logger.WithError(err).WithFields(logrus.Fields{
				"order_id":   stored.OrderID,
				"product_id": l.ProductID,
			}).Warn("checkout: remove confirmed line")
			if cleanup == nil {
				cleanup = err
			}
		}
	}
	if err := o.cart.RecordConfirmation(ctx, stored.Lines); err != nil && cleanup == nil {
		cleanup = err
	}

	out := *stored
	out.Lines = append([]domain.OrderLine(nil), stored.Lines...)
	return &out, cleanup
}

func (o *Orchestrator) persist(ctx context.Context, op, userID string, lines []domain.CartLine) (*domain.Order, error) {
	orderID, err := o.newOrderID()
	if err != nil {
		return nil, fmt.Errorf("%s: order id: %w", op, err)
	}

	records := make([]domain.OrderRecord, 0, len(lines))
	for _, l := range lines {
		price, err := strconv.ParseFloat(l.UnitPrice, 64)
		if err != nil {
			return nil, domain.Invalid(op, map[string]string{
				"unitPrice": fmt.Sprintf("product %d has an invalid price %q", l.ProductID, l.UnitPrice),
			})
		}
		records = append(records, domain.OrderRecord{
			OrderID:   orderID,
			UserID:    userID,
			ProductID: l.ProductID,
			Title:     l.Title,
			Price:     l.UnitPrice,
			Quantity:  l.Quantity,
			Subtotal:  fmt.Sprintf("%.2f", price*float64(l.Quantity)),
		})
	}

	tctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.timeout)
	defer cancel()
	created, err := o.orders.CreateBatch(tctx, records)
	if err != nil {
		o.logger.WithError(err).WithField("order_id", orderID).Error("checkout: store order")
		return nil, domain.Wrap(domain.KindRemoteUnavailable, op, err)
	}
	order := domain.OrderFromRecords(orderID, userID, created)
	return &order, nil
}

func transitionError(op string, from, to State) error {
	return domain.Invalid(op, map[string]string{
		"state": fmt.Sprintf("cannot move from %s to %s", from, to),
	})
}

func (o *Orchestrator) record(op string, err error) {
	switch {
	case err == nil:
		o.metrics.Operation(op, "ok")
	case domain.KindOf(err) != "":
		o.metrics.Operation(op, string(domain.KindOf(err)))
	default:
		o.metrics.Operation(op, "error")
	}
}
