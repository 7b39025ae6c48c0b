package middleware

import (
	"crypto/subtle"
	"errors"
	"log"
	"strings"

	"hospital-jobs/internal/domain/user"
	"hospital-jobs/internal/pkg/jwt"

	"github.com/gofiber/fiber/v3"
)

const (
	CronSecretHeader = "X-Cron-Secret"

	CtxPrincipalKey = "principal"
)

// TriggerAuth admits schedulers holding the shared cron secret, service-role
// tokens, and tokens whose subject has the admin role. It runs before any
// batch work starts.
type TriggerAuth struct {
	cronSecret string
	jwt        jwt.Service
	roles      user.RoleRepository
	adminRole  string
	logger     *log.Logger
}

func NewTriggerAuth(cronSecret string, jwtSvc jwt.Service, roles user.RoleRepository, adminRole string, logger *log.Logger) *TriggerAuth {
	if logger == nil {
		logger = log.Default()
	}
	if adminRole == "" {
		adminRole = "admin"
	}
	return &TriggerAuth{
		cronSecret: cronSecret,
		jwt:        jwtSvc,
		roles:      roles,
		adminRole:  adminRole,
		logger:     logger,
	}
}

func (m *TriggerAuth) Middleware() fiber.Handler {
	return func(c fiber.Ctx) error {
		if secret := strings.TrimSpace(c.Get(CronSecretHeader)); secret != "" && m.cronSecret != "" {
			if subtle.ConstantTimeCompare([]byte(secret), []byte(m.cronSecret)) == 1 {
				c.Locals(CtxPrincipalKey, "cron")
				return c.Next()
			}
		}

		token, ok := bearerTokenFromHeader(c.Get("Authorization"))
		if !ok || m.jwt == nil {
			return NewAppError(fiber.StatusUnauthorized, "Unauthorized", nil)
		}

		claims, err := m.jwt.Validate(token)
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				return NewAppError(fiber.StatusUnauthorized, "Token expired", err)
			}
			return NewAppError(fiber.StatusUnauthorized, "Invalid token", err)
		}

		if claims.IsService() {
			c.Locals(CtxPrincipalKey, jwt.RoleService)
			return c.Next()
		}

		userID, ok := claims.UserID()
		if !ok {
			return NewAppError(fiber.StatusUnauthorized, "Invalid token", nil)
		}
		if m.roles == nil {
			return NewAppError(fiber.StatusForbidden, "Forbidden", nil)
		}
		isAdmin, err := m.roles.HasRole(c.Context(), userID, m.adminRole)
		if err != nil {
			m.logger.Printf("auth=role_check status=error user=%s err=%v", userID, err)
			return NewAppError(fiber.StatusInternalServerError, "", err)
		}
		if !isAdmin {
			return NewAppError(fiber.StatusForbidden, "Forbidden", nil)
		}

		c.Locals(CtxPrincipalKey, userID.String())
		return c.Next()
	}
}

func bearerTokenFromHeader(authHeader string) (string, bool) {
	authHeader = strings.TrimSpace(authHeader)
	if authHeader == "" {
		return "", false
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 {
		return "", false
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}

	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", false
	}

	return token, true
}
