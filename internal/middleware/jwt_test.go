package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/mugeunji/studio-reservation/internal/model"
	"github.com/mugeunji/studio-reservation/internal/utils"
)

const testSecret = "test-secret"

func runWith(mw echo.MiddlewareFunc, authHeader string) (*httptest.ResponseRecorder, echo.Context) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	handler := mw(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	_ = handler(c)
	return rec, c
}

func TestJWTAuthAcceptsIssuedToken(t *testing.T) {
	access, err := utils.NewAccessToken(testSecret, "alice", model.RoleAdmin, 5)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	rec, c := runWith(JWTAuth(testSecret), "Bearer "+access.Token)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := c.Get("username"); got != "alice" {
		t.Fatalf("username claim not injected, got %v", got)
	}
	if got := c.Get("role"); got != model.RoleAdmin {
		t.Fatalf("role claim not injected, got %v", got)
	}
}

func TestJWTAuthRejects(t *testing.T) {
	wrongKey, err := utils.NewAccessToken("other-secret", "alice", model.RoleUser, 5)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	expired, err := utils.NewAccessToken(testSecret, "alice", model.RoleUser, -5)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	cases := []string{
		"",
		"Bearer not-a-token",
		"Bearer " + wrongKey.Token,
		"Bearer " + expired.Token,
	}
	for _, header := range cases {
		rec, _ := runWith(JWTAuth(testSecret), header)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("header %q: expected 401, got %d", header, rec.Code)
		}
	}
}

func TestRequireRole(t *testing.T) {
	e := echo.New()
	mw := RequireRole(model.RoleAdmin)
	handler := mw(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	run := func(role interface{}) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		if role != nil {
			c.Set("role", role)
		}
		_ = handler(c)
		return rec.Code
	}

	if code := run(model.RoleAdmin); code != http.StatusOK {
		t.Fatalf("admin: expected 200, got %d", code)
	}
	if code := run(model.RoleUser); code != http.StatusForbidden {
		t.Fatalf("user: expected 403, got %d", code)
	}
	if code := run(nil); code != http.StatusForbidden {
		t.Fatalf("no role: expected 403, got %d", code)
	}
}
