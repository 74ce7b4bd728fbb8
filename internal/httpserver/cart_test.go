package httpserver

import (
	"net/http"
	"testing"
)

type cartBody struct {
	Lines []struct {
		ProductID int    `json:"productId"`
		Quantity  int    `json:"quantity"`
		UnitPrice string `json:"unitPrice"`
	} `json:"lines"`
	ItemCount int    `json:"itemCount"`
	Total     string `json:"total"`
}

func TestCart_RequiresSession(t *testing.T) {
	ts := newTestServer(t, nil)

	for _, token := range []string{"", "tok-unknown", "garbage"} {
		rec := ts.do(t, http.MethodGet, "/cart", token, "")
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("token %q: expected 401, got %d", token, rec.Code)
		}
		if kind := errorKind(t, rec).Kind; kind != "NotAuthenticated" {
			t.Fatalf("token %q: expected NotAuthenticated, got %q", token, kind)
		}
	}
}

func TestCart_AddLine(t *testing.T) {
	ts := newTestServer(t, nil)
	token := ts.login(t)

	rec := ts.do(t, http.MethodPost, "/cart/lines", token, `{"productId":1,"quantity":3}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", rec.Code, rec.Body.String())
	}
	var body struct {
		Cart cartBody `json:"cart"`
	}
	decode(t, rec, &body)
	if len(body.Cart.Lines) != 1 || body.Cart.Lines[0].Quantity != 3 || body.Cart.Lines[0].UnitPrice != "10.00" {
		t.Fatalf("unexpected cart %+v", body.Cart)
	}
	if body.Cart.Total != "30.00" {
		t.Fatalf("expected total 30.00, got %q", body.Cart.Total)
	}
	if remote, _ := ts.lines.List(t.Context(), "user-1"); len(remote) != 1 {
		t.Fatalf("expected 1 remote line, got %d", len(remote))
	}
}

func TestCart_AddLineDefaultsAndClamps(t *testing.T) {
	ts := newTestServer(t, nil)
	token := ts.login(t)

	ts.do(t, http.MethodPost, "/cart/lines", token, `{"productId":1}`)
	ts.do(t, http.MethodPost, "/cart/lines", token, `{"productId":2,"quantity":50}`)

	rec := ts.do(t, http.MethodGet, "/cart", token, "")
	var body cartBody
	decode(t, rec, &body)
	if len(body.Lines) != 2 || body.Lines[0].Quantity != 1 || body.Lines[1].Quantity != 10 {
		t.Fatalf("unexpected lines %+v", body.Lines)
	}
}

func TestCart_AddDuplicate(t *testing.T) {
	ts := newTestServer(t, nil)
	token := ts.login(t)

	ts.do(t, http.MethodPost, "/cart/lines", token, `{"productId":1}`)
	rec := ts.do(t, http.MethodPost, "/cart/lines", token, `{"productId":1}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d body=%s", rec.Code, rec.Body.String())
	}
	if kind := errorKind(t, rec).Kind; kind != "DuplicateItem" {
		t.Fatalf("expected DuplicateItem, got %q", kind)
	}
}

func TestCart_AddUnknownProduct(t *testing.T) {
	ts := newTestServer(t, nil)
	token := ts.login(t)

	if rec := ts.do(t, http.MethodPost, "/cart/lines", token, `{"productId":404}`); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if rec := ts.do(t, http.MethodPost, "/cart/lines", token, `{"productId":0}`); rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
}

func TestCart_AddLineWithCacheDown(t *testing.T) {
	ts := newTestServer(t, nil)
	token := ts.login(t)
	ts.cache.setDown(true)

	rec := ts.do(t, http.MethodPost, "/cart/lines", token, `{"productId":9}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", rec.Code, rec.Body.String())
	}
	var body struct {
		Warnings []string `json:"warnings"`
	}
	decode(t, rec, &body)
	if len(body.Warnings) != 1 {
		t.Fatalf("expected a warning, got %s", rec.Body.String())
	}
}

func TestCart_ChangeQuantity(t *testing.T) {
	ts := newTestServer(t, nil)
	token := ts.login(t)
	ts.do(t, http.MethodPost, "/cart/lines", token, `{"productId":1,"quantity":9}`)

	rec := ts.do(t, http.MethodPatch, "/cart/lines/1", token, `{"delta":5}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}
	var body struct {
		Line    struct{ Quantity int } `json:"line"`
		Removed bool                   `json:"removed"`
	}
	decode(t, rec, &body)
	if body.Line.Quantity != 10 || body.Removed {
		t.Fatalf("expected quantity clamped to 10, got %+v", body)
	}

	ts.do(t, http.MethodPatch, "/cart/lines/1", token, `{"delta":-9}`)
	rec = ts.do(t, http.MethodPatch, "/cart/lines/1", token, `{"delta":-1}`)
	decode(t, rec, &body)
	if !body.Removed {
		t.Fatalf("expected line removed, got %s", rec.Body.String())
	}
	if remote, _ := ts.lines.List(t.Context(), "user-1"); len(remote) != 0 {
		t.Fatalf("expected remote line deleted, got %d", len(remote))
	}
}

func TestCart_ChangeQuantityExtremeDelta(t *testing.T) {
	ts := newTestServer(t, nil)
	token := ts.login(t)
	ts.do(t, http.MethodPost, "/cart/lines", token, `{"productId":1,"quantity":3}`)

	rec := ts.do(t, http.MethodPatch, "/cart/lines/1", token, `{"delta":9223372036854775807}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}
	var body struct {
		Line    struct{ Quantity int } `json:"line"`
		Removed bool                   `json:"removed"`
	}
	decode(t, rec, &body)
	if body.Line.Quantity != 10 || body.Removed {
		t.Fatalf("expected quantity saturated at 10, got %+v", body)
	}
	remote, _ := ts.lines.List(t.Context(), "user-1")
	if len(remote) != 1 || remote[0].Quantity != 10 {
		t.Fatalf("expected remote line kept at 10, got %+v", remote)
	}
}

func TestCart_RemoveLine(t *testing.T) {
	ts := newTestServer(t, nil)
	token := ts.login(t)
	ts.do(t, http.MethodPost, "/cart/lines", token, `{"productId":2}`)

	if rec := ts.do(t, http.MethodDelete, "/cart/lines/2", token, ""); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}
	if rec := ts.do(t, http.MethodDelete, "/cart/lines/2", token, ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on second delete, got %d", rec.Code)
	}
	if rec := ts.do(t, http.MethodDelete, "/cart/lines/abc", token, ""); rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for bad id, got %d", rec.Code)
	}
}

func TestCart_ReloadPrefersRemote(t *testing.T) {
	ts := newTestServer(t, nil)
	token := ts.login(t)
	ts.do(t, http.MethodPost, "/cart/lines", token, `{"productId":1}`)

	// Another device emptied the cart.
	ts.lines.mu.Lock()
	ts.lines.byUser["user-1"] = nil
	ts.lines.mu.Unlock()

	rec := ts.do(t, http.MethodPost, "/cart/reload", token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body struct {
		Cart cartBody `json:"cart"`
	}
	decode(t, rec, &body)
	if len(body.Cart.Lines) != 0 {
		t.Fatalf("expected remote state to win, got %+v", body.Cart.Lines)
	}
}
