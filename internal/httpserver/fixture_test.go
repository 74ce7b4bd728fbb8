package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"storefront-sync/internal/domain"
	"storefront-sync/internal/localcache"
	"storefront-sync/internal/logging"
	"storefront-sync/internal/service/cart"
	"storefront-sync/internal/service/checkout"
	"storefront-sync/internal/service/identity"
	ordersvc "storefront-sync/internal/service/order"
	"storefront-sync/internal/service/session"

	"github.com/gin-gonic/gin"
)

type stubIdentity struct {
	mu   sync.Mutex
	live map[string]domain.UserRef
}

func (s *stubIdentity) Signup(_ context.Context, in identity.SignupInput) (*domain.UserRef, error) {
	if !strings.Contains(in.Email, "@") {
		return nil, domain.Invalid("identity.Signup", map[string]string{"email": "must be a valid email address"})
	}
	return &domain.UserRef{ID: "user-1", Email: in.Email, Name: in.Name}, nil
}

func (s *stubIdentity) Login(_ context.Context, email, password string) (string, *domain.UserRef, error) {
	if password != "Abcdefg1" {
		return "", nil, domain.NewError(domain.KindAuth, "identity.Login", "")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	user := domain.UserRef{ID: "user-1", Email: email}
	s.live["tok-1"] = user
	return "tok-1", &user, nil
}

func (s *stubIdentity) CurrentUser(_ context.Context, token string) (*domain.UserRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.live[token]; ok {
		return &u, nil
	}
	return nil, nil
}

func (s *stubIdentity) Logout(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.live, token)
	return nil
}

func (s *stubIdentity) SessionID(token string) (string, bool) {
	if !strings.HasPrefix(token, "tok-") {
		return "", false
	}
	return "sid-" + token, true
}

type memoryLines struct {
	mu     sync.Mutex
	byUser map[string][]domain.CartLine
}

func (r *memoryLines) List(_ context.Context, userID string) ([]domain.CartLine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.CartLine(nil), r.byUser[userID]...), nil
}

func (r *memoryLines) FindByProduct(_ context.Context, userID string, productID int) (*domain.CartLine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range r.byUser[userID] {
		if l.ProductID == productID {
			return &l, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memoryLines) Create(_ context.Context, userID string, line domain.CartLine) (*domain.CartLine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byUser[userID] = append(r.byUser[userID], line)
	return &line, nil
}

func (r *memoryLines) UpdateQuantity(_ context.Context, userID, id string, quantity int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, l := range r.byUser[userID] {
		if l.RemoteRecordID == id {
			r.byUser[userID][i].Quantity = quantity
			return nil
		}
	}
	return domain.ErrNotFound
}

func (r *memoryLines) Delete(_ context.Context, userID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	lines := r.byUser[userID]
	for i, l := range lines {
		if l.RemoteRecordID == id {
			r.byUser[userID] = append(lines[:i:i], lines[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

type memoryAddresses struct {
	mu     sync.Mutex
	byUser map[string][]domain.Address
}

func (r *memoryAddresses) List(_ context.Context, userID string) ([]domain.Address, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Address(nil), r.byUser[userID]...), nil
}

func (r *memoryAddresses) Create(_ context.Context, userID string, a domain.Address) (*domain.Address, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a.RemoteRecordID = "addr-1"
	r.byUser[userID] = append(r.byUser[userID], a)
	return &a, nil
}

func (r *memoryAddresses) Update(_ context.Context, userID string, a domain.Address) (*domain.Address, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byUser[userID] = []domain.Address{a}
	return &a, nil
}

type memoryOrders struct {
	mu      sync.Mutex
	records []domain.OrderRecord
}

func (r *memoryOrders) CreateBatch(_ context.Context, records []domain.OrderRecord) ([]domain.OrderRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.OrderRecord, len(records))
	for i, rec := range records {
		rec.CreatedAt = time.Now().UTC()
		out[i] = rec
	}
	r.records = append(r.records, out...)
	return out, nil
}

func (r *memoryOrders) ListByUser(_ context.Context, userID string) ([]domain.OrderRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.OrderRecord
	for _, rec := range r.records {
		if rec.UserID == userID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *memoryOrders) ListByOrder(ctx context.Context, userID, orderID string) ([]domain.OrderRecord, error) {
	all, _ := r.ListByUser(ctx, userID)
	var out []domain.OrderRecord
	for _, rec := range all {
		if rec.OrderID == orderID {
			out = append(out, rec)
		}
	}
	return out, nil
}

type stubCatalog struct {
	products []domain.Product
	err      error
}

func (s *stubCatalog) Products(context.Context) ([]domain.Product, error) {
	return s.products, s.err
}

func (s *stubCatalog) Categories(context.Context) ([]string, error) {
	return []string{"electronics", "men's clothing"}, s.err
}

func (s *stubCatalog) Product(_ context.Context, id int) (*domain.Product, error) {
	if s.err != nil {
		return nil, s.err
	}
	for _, p := range s.products {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, domain.NewError(domain.KindRecordNotFound, "catalog.Product", "product not found")
}

// failableStore wraps the memory cache so tests can take it down.
type failableStore struct {
	localcache.Store
	mu   sync.Mutex
	down bool
}

func (s *failableStore) setDown(v bool) {
	s.mu.Lock()
	s.down = v
	s.mu.Unlock()
}

func (s *failableStore) Set(ctx context.Context, ns, key string, v []byte) error {
	s.mu.Lock()
	down := s.down
	s.mu.Unlock()
	if down {
		return errors.New("redis: connection refused")
	}
	return s.Store.Set(ctx, ns, key, v)
}

type testServer struct {
	router  *gin.Engine
	cache   *failableStore
	lines   *memoryLines
	orders  *memoryOrders
	catalog *stubCatalog
}

func newTestServer(t *testing.T, mutate func(*Deps)) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ts := &testServer{
		cache:  &failableStore{Store: localcache.NewMemory()},
		lines:  &memoryLines{byUser: map[string][]domain.CartLine{}},
		orders: &memoryOrders{},
		catalog: &stubCatalog{products: []domain.Product{
			{ID: 1, Title: "Fjallraven Backpack", Price: 10, Category: "men's clothing"},
			{ID: 2, Title: "Slim Fit T-Shirt", Price: 5, Category: "men's clothing"},
			{ID: 9, Title: "WD 2TB External Hard Drive", Price: 64, Category: "electronics"},
		}},
	}
	addresses := &memoryAddresses{byUser: map[string][]domain.Address{}}
	manager := session.NewManager(session.Deps{
		Identity: &stubIdentity{live: map[string]domain.UserRef{}},
		NewCart: func(sessionID string) *cart.Cart {
			return cart.New(cart.Deps{
				Lines:     ts.lines,
				Addresses: addresses,
				Local:     localcache.NewMirror(ts.cache, sessionID, nil),
			})
		},
		NewCheckout: func(c *cart.Cart) *checkout.Orchestrator {
			return checkout.New(checkout.Deps{Cart: c, Orders: ts.orders})
		},
	})

	deps := Deps{
		Sessions:        manager,
		Catalog:         ts.catalog,
		Orders:          ordersvc.New(ts.orders, 0),
		LoginRatePerMin: 100,
	}
	if mutate != nil {
		mutate(&deps)
	}
	router, err := buildRouter(logging.Discard(), deps)
	if err != nil {
		t.Fatalf("build router: %v", err)
	}
	ts.router = router
	return ts
}

func (ts *testServer) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) login(t *testing.T) string {
	t.Helper()
	rec := ts.do(t, http.MethodPost, "/auth/login", "", `{"email":"ada@example.com","password":"Abcdefg1"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}
	var body struct {
		Token string `json:"token"`
	}
	decode(t, rec, &body)
	return body.Token
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %s: %v", rec.Body.String(), err)
	}
}

func errorKind(t *testing.T, rec *httptest.ResponseRecorder) errorDetail {
	t.Helper()
	var body errorResponse
	decode(t, rec, &body)
	return body.Error
}
