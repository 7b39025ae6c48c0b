package jwt

import (
	"errors"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// RoleService marks tokens minted for schedulers and other backend callers.
const RoleService = "service_role"

var (
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("token invalid")
)

// Claims follow the platform's access-token layout: the user id in sub and
// the database role in role.
type Claims struct {
	Role string `json:"role"`

	jwtlib.RegisteredClaims
}

// UserID parses the subject; service tokens may carry none.
func (c Claims) UserID() (uuid.UUID, bool) {
	id, err := uuid.Parse(strings.TrimSpace(c.Subject))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

func (c Claims) IsService() bool {
	return c.Role == RoleService
}

type Service interface {
	Generate(subject uuid.UUID, role string, ttl time.Duration) (string, error)
	Validate(tokenString string) (Claims, error)
}

type HMACService struct {
	secret []byte
	now    func() time.Time
}

func NewHMACService(secret string) *HMACService {
	return &HMACService{
		secret: []byte(secret),
		now:    time.Now,
	}
}

func (s *HMACService) Generate(subject uuid.UUID, role string, ttl time.Duration) (string, error) {
	if len(s.secret) == 0 || ttl <= 0 {
		return "", ErrTokenInvalid
	}
	now := s.now().UTC()

	c := Claims{
		Role: role,
		RegisteredClaims: jwtlib.RegisteredClaims{
			IssuedAt:  jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(now.Add(ttl)),
		},
	}
	if subject != uuid.Nil {
		c.Subject = subject.String()
	}

	t := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, c)
	return t.SignedString(s.secret)
}

func (s *HMACService) Validate(tokenString string) (Claims, error) {
	if len(s.secret) == 0 {
		return Claims{}, ErrTokenInvalid
	}
	p := jwtlib.NewParser(
		jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}),
		jwtlib.WithExpirationRequired(),
		jwtlib.WithTimeFunc(s.now),
	)

	var c Claims
	tok, err := p.ParseWithClaims(tokenString, &c, func(token *jwtlib.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwtlib.ErrTokenExpired) {
			return Claims{}, ErrTokenExpired
		}
		return Claims{}, ErrTokenInvalid
	}
	if tok == nil || !tok.Valid {
		return Claims{}, ErrTokenInvalid
	}
	return c, nil
}
