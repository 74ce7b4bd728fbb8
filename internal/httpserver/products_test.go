package httpserver

import (
	"errors"
	"net/http"
	"testing"

	"storefront-sync/internal/domain"
)

func TestProducts_Filter(t *testing.T) {
	ts := newTestServer(t, nil)

	cases := []struct {
		query string
		want  int
	}{
		{"", 3},
		{"?q=shirt", 1},
		{"?category=electronics", 1},
		{"?category=electronics,men's%20clothing", 3},
		{"?category=men's%20clothing&maxPrice=5", 1},
		{"?minPrice=10&maxPrice=10", 1},
		{"?q=backpack&category=electronics", 0},
	}
	for _, tc := range cases {
		rec := ts.do(t, http.MethodGet, "/products"+tc.query, "", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", tc.query, rec.Code)
		}
		var body struct {
			Count int `json:"count"`
		}
		decode(t, rec, &body)
		if body.Count != tc.want {
			t.Fatalf("%s: expected %d results, got %d", tc.query, tc.want, body.Count)
		}
	}
}

func TestProducts_InvalidPriceRange(t *testing.T) {
	ts := newTestServer(t, nil)

	for _, q := range []string{"?minPrice=abc", "?maxPrice=-1", "?minPrice=50&maxPrice=10"} {
		rec := ts.do(t, http.MethodGet, "/products"+q, "", "")
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("%s: expected 422, got %d", q, rec.Code)
		}
	}
}

func TestProducts_CatalogDown(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.catalog.err = domain.Wrap(domain.KindRemoteUnavailable, "catalog.Products", errors.New("dial tcp: refused"))

	rec := ts.do(t, http.MethodGet, "/products", "", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	if detail := errorKind(t, rec); detail.Message == "" || detail.Kind != "RemoteUnavailable" {
		t.Fatalf("unexpected error %+v", detail)
	}
}

func TestProduct_Get(t *testing.T) {
	ts := newTestServer(t, nil)

	if rec := ts.do(t, http.MethodGet, "/products/9", "", ""); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec := ts.do(t, http.MethodGet, "/products/404", "", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if rec := ts.do(t, http.MethodGet, "/products/categories", "", ""); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for categories, got %d", rec.Code)
	}
}
