package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"storefront-sync/internal/domain"
	"storefront-sync/internal/metrics"

	"github.com/prometheus/client_golang/prometheus"
)

func TestHealthz(t *testing.T) {
	ts := newTestServer(t, nil)

	if rec := ts.do(t, http.MethodGet, "/healthz", "", ""); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestReadyz(t *testing.T) {
	var down bool
	ts := newTestServer(t, func(d *Deps) {
		d.Ready = []ReadyCheck{{Name: "postgres", Ping: func(context.Context) error {
			if down {
				return errors.New("connection refused")
			}
			return nil
		}}}
	})

	if rec := ts.do(t, http.MethodGet, "/readyz", "", ""); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	down = true
	rec := ts.do(t, http.MethodGet, "/readyz", "", "")
	if rec.Code != http.StatusServiceUnavailable || !strings.Contains(rec.Body.String(), "postgres") {
		t.Fatalf("expected 503 naming postgres, got %d body=%s", rec.Code, rec.Body.String())
	}
}

func TestReadyz_NoChecks(t *testing.T) {
	ts := newTestServer(t, nil)

	if rec := ts.do(t, http.MethodGet, "/readyz", "", ""); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	ts := newTestServer(t, func(d *Deps) {
		d.Metrics = metrics.New(reg)
		d.Gatherer = reg
	})

	ts.do(t, http.MethodGet, "/healthz", "", "")
	rec := ts.do(t, http.MethodGet, "/metrics", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "/healthz") {
		t.Fatalf("expected request metrics for /healthz, got %s", rec.Body.String())
	}
}

func TestNoRoute(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, http.MethodGet, "/nope", "", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if kind := errorKind(t, rec).Kind; kind != "RecordNotFound" {
		t.Fatalf("expected RecordNotFound, got %q", kind)
	}
}

func TestRequestIDHeader(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, http.MethodGet, "/healthz", "", "")
	if rec.Header().Get(requestIDHdr) == "" {
		t.Fatalf("expected %s header", requestIDHdr)
	}
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{domain.NewError(domain.KindNotAuthenticated, "op", ""), http.StatusUnauthorized},
		{domain.NewError(domain.KindAuth, "op", ""), http.StatusUnauthorized},
		{domain.NewError(domain.KindDuplicateItem, "op", ""), http.StatusConflict},
		{domain.NewError(domain.KindRecordNotFound, "op", ""), http.StatusNotFound},
		{domain.Invalid("op", map[string]string{"x": "bad"}), http.StatusUnprocessableEntity},
		{fmt.Errorf("wrapped: %w", domain.Wrap(domain.KindRemoteUnavailable, "op", context.DeadlineExceeded)), http.StatusServiceUnavailable},
		{domain.Wrap(domain.KindCacheUnavailable, "op", errors.New("down")), http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := statusFor(tc.err); got != tc.want {
			t.Fatalf("%v: expected %d, got %d", tc.err, tc.want, got)
		}
	}
}

func TestVisitorStore_Refills(t *testing.T) {
	store := newVisitorStore(2, time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store.nowFunc = func() time.Time { return now }

	if !store.allow("1.2.3.4") || !store.allow("1.2.3.4") {
		t.Fatalf("expected burst of 2 to be allowed")
	}
	if store.allow("1.2.3.4") {
		t.Fatalf("expected third request to be limited")
	}
	if !store.allow("5.6.7.8") {
		t.Fatalf("expected other visitor to be allowed")
	}
	now = now.Add(30 * time.Second)
	if !store.allow("1.2.3.4") {
		t.Fatalf("expected a token after 30s")
	}
}

func TestVisitorStore_SweepsIdle(t *testing.T) {
	store := newVisitorStore(1, time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store.nowFunc = func() time.Time { return now }

	store.allow("1.2.3.4")
	now = now.Add(2 * time.Minute)
	store.allow("5.6.7.8")
	if _, ok := store.visitors["1.2.3.4"]; ok {
		t.Fatalf("expected idle visitor to be evicted")
	}
}
