package order

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"storefront-sync/internal/domain"
)

type recordStore interface {
	ListByUser(ctx context.Context, userID string) ([]domain.OrderRecord, error)
	ListByOrder(ctx context.Context, userID, orderID string) ([]domain.OrderRecord, error)
}

// Service serves read-only order history built from checkout records.
type Service struct {
	records recordStore
	timeout time.Duration
}

func New(records recordStore, timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Service{records: records, timeout: timeout}
}

// List groups the user's records by order id, newest order first.
func (s *Service) List(ctx context.Context, userID string) ([]domain.Order, error) {
	const op = "order.List"
	if userID == "" {
		return nil, domain.NewError(domain.KindNotAuthenticated, op, "")
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	records, err := s.records.ListByUser(ctx, userID)
	if err != nil {
		return nil, domain.Wrap(domain.KindRemoteUnavailable, op, err)
	}

	grouped := make(map[string][]domain.OrderRecord)
	var ids []string
	for _, r := range records {
		if _, seen := grouped[r.OrderID]; !seen {
			ids = append(ids, r.OrderID)
		}
		grouped[r.OrderID] = append(grouped[r.OrderID], r)
	}

	orders := make([]domain.Order, 0, len(ids))
	for _, id := range ids {
		orders = append(orders, domain.OrderFromRecords(id, userID, grouped[id]))
	}
	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
	return orders, nil
}

// Get returns one order. Orders of other users are reported as not found.
func (s *Service) Get(ctx context.Context, userID, orderID string) (*domain.Order, error) {
	const op = "order.Get"
	if userID == "" {
		return nil, domain.NewError(domain.KindNotAuthenticated, op, "")
	}
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, domain.NewError(domain.KindRecordNotFound, op, "order not found")
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	records, err := s.records.ListByOrder(ctx, userID, orderID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NewError(domain.KindRecordNotFound, op, "order not found")
		}
		return nil, domain.Wrap(domain.KindRemoteUnavailable, op, err)
	}
	if len(records) == 0 {
		return nil, domain.NewError(domain.KindRecordNotFound, op, "order not found")
	}
	order := domain.OrderFromRecords(orderID, userID, records)
	return &order, nil
}
