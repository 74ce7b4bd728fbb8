package httpserver

import (
	"net/http"
	"testing"
)

func TestSignup_Created(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, http.MethodPost, "/auth/signup", "", `{"name":"Ada","email":"ada@example.com","password":"Abcdefg1"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", rec.Code, rec.Body.String())
	}
	var body struct {
		User struct {
			Email string `json:"email"`
		} `json:"user"`
	}
	decode(t, rec, &body)
	if body.User.Email != "ada@example.com" {
		t.Fatalf("unexpected user %+v", body.User)
	}
}

func TestSignup_ValidationFields(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, http.MethodPost, "/auth/signup", "", `{"email":"nope","password":"Abcdefg1"}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d body=%s", rec.Code, rec.Body.String())
	}
	detail := errorKind(t, rec)
	if detail.Kind != "ValidationError" || detail.Fields["email"] == "" {
		t.Fatalf("unexpected error %+v", detail)
	}
}

func TestSignup_MalformedBody(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, http.MethodPost, "/auth/signup", "", `{`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, http.MethodPost, "/auth/login", "", `{"email":"ada@example.com","password":"wrong"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d body=%s", rec.Code, rec.Body.String())
	}
	if kind := errorKind(t, rec).Kind; kind != "AuthError" {
		t.Fatalf("expected AuthError, got %q", kind)
	}
}

func TestLogin_MissingFieldsIsAuthError(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, http.MethodPost, "/auth/login", "", `{"email":"ada@example.com"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestLogin_ReturnsTokenAndCart(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, http.MethodPost, "/auth/login", "", `{"email":"ada@example.com","password":"Abcdefg1"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}
	var body struct {
		Token string `json:"token"`
		Cart  struct {
			Lines []any `json:"lines"`
		} `json:"cart"`
		Warnings []string `json:"warnings"`
	}
	decode(t, rec, &body)
	if body.Token != "tok-1" {
		t.Fatalf("unexpected token %q", body.Token)
	}
	if len(body.Cart.Lines) != 0 || len(body.Warnings) != 0 {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
}

func TestMe(t *testing.T) {
	ts := newTestServer(t, nil)

	if rec := ts.do(t, http.MethodGet, "/me", "", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}

	token := ts.login(t)
	rec := ts.do(t, http.MethodGet, "/me", token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}
}

func TestLogout_EndsSession(t *testing.T) {
	ts := newTestServer(t, nil)
	token := ts.login(t)

	if rec := ts.do(t, http.MethodPost, "/auth/logout", token, ""); rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d body=%s", rec.Code, rec.Body.String())
	}
	if rec := ts.do(t, http.MethodGet, "/me", token, ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 after logout, got %d", rec.Code)
	}
	if rec := ts.do(t, http.MethodGet, "/cart", token, ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected cart to require a new login, got %d", rec.Code)
	}
}

func TestLogout_WithoutToken(t *testing.T) {
	ts := newTestServer(t, nil)

	if rec := ts.do(t, http.MethodPost, "/auth/logout", "", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestLogin_RateLimited(t *testing.T) {
	ts := newTestServer(t, func(d *Deps) { d.LoginRatePerMin = 1 })

	ts.do(t, http.MethodPost, "/auth/login", "", `{"email":"ada@example.com","password":"wrong"}`)
	rec := ts.do(t, http.MethodPost, "/auth/login", "", `{"email":"ada@example.com","password":"wrong"}`)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if kind := errorKind(t, rec).Kind; kind != "RateLimited" {
		t.Fatalf("expected RateLimited, got %q", kind)
	}
}
