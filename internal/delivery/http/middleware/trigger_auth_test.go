package middleware

import (
	"context"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"hospital-jobs/internal/pkg/jwt"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

type stubRoles map[uuid.UUID]bool

func (s stubRoles) HasRole(ctx context.Context, userID uuid.UUID, role string) (bool, error) {
	return role == "admin" && s[userID], nil
}

func newAuthApp(roles stubRoles, jwtSvc jwt.Service) (*fiber.App, *int) {
	logger := log.New(io.Discard, "", 0)
	ran := 0
	app := fiber.New()
	app.Use(NewErrorMiddleware(logger).Middleware())
	auth := NewTriggerAuth("cron-secret", jwtSvc, roles, "admin", logger)
	app.Post("/trigger", auth.Middleware(), func(c fiber.Ctx) error {
		ran++
		return c.SendStatus(fiber.StatusOK)
	})
	return app, &ran
}

func TestTriggerAuth(t *testing.T) {
	svc := jwt.NewHMACService("jwt-secret")
	admin := uuid.New()
	member := uuid.New()

	adminToken, err := svc.Generate(admin, "authenticated", time.Minute)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	memberToken, err := svc.Generate(member, "authenticated", time.Minute)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	serviceToken, err := svc.Generate(uuid.Nil, jwt.RoleService, time.Minute)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	foreignToken, err := jwt.NewHMACService("other").Generate(admin, "authenticated", time.Minute)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	cases := []struct {
		name    string
		headers map[string]string
		want    int
	}{
		{"no credentials", nil, http.StatusUnauthorized},
		{"cron secret", map[string]string{CronSecretHeader: "cron-secret"}, http.StatusOK},
		{"wrong cron secret", map[string]string{CronSecretHeader: "guess"}, http.StatusUnauthorized},
		{"admin bearer", map[string]string{"Authorization": "Bearer " + adminToken}, http.StatusOK},
		{"service bearer", map[string]string{"Authorization": "Bearer " + serviceToken}, http.StatusOK},
		{"non-admin bearer", map[string]string{"Authorization": "Bearer " + memberToken}, http.StatusForbidden},
		{"foreign signature", map[string]string{"Authorization": "Bearer " + foreignToken}, http.StatusUnauthorized},
		{"malformed header", map[string]string{"Authorization": "Token abc"}, http.StatusUnauthorized},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app, ran := newAuthApp(stubRoles{admin: true}, svc)

			req := httptest.NewRequest(http.MethodPost, "/trigger", nil)
			for k, v := range tc.headers {
				req.Header.Set(k, v)
			}
			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("request: %v", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, resp.StatusCode)
			}
			if tc.want != http.StatusOK && *ran != 0 {
				t.Fatalf("handler ran despite rejected credentials")
			}
		})
	}
}

func TestBearerTokenFromHeader(t *testing.T) {
	if tok, ok := bearerTokenFromHeader("  bearer abc.def "); !ok || tok != "abc.def" {
		t.Fatalf("unexpected result: %q %v", tok, ok)
	}
	if _, ok := bearerTokenFromHeader("Bearer "); ok {
		t.Fatalf("expected empty token to be rejected")
	}
}
