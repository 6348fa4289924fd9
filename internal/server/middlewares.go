package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/kamacharovs/aiof-asset/internal/config"
	"github.com/kamacharovs/aiof-asset/internal/tenant"
)

var (
	ErrMissingCredentials = errors.New("authorization header is required")
	ErrInvalidToken       = errors.New("token is invalid")
)

// intClaim accepts numeric claims encoded as JSON numbers or strings.
type intClaim int

func (i *intClaim) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*i = 0
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("invalid numeric claim %s: %w", b, err)
	}
	*i = intClaim(n)
	return nil
}

type TenantClaims struct {
	UserID    intClaim `json:"user_id"`
	ClientID  intClaim `json:"client_id"`
	PublicKey string   `json:"public_key"`
	jwt.RegisteredClaims
}

func (s *Server) parseToken(raw string) (tenant.Tenant, error) {
	var claims TenantClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (interface{}, error) {
		return s.jwtKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}))
	if err != nil {
		return tenant.Tenant{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if s.cfg.JWT.Issuer != "" && !claims.VerifyIssuer(s.cfg.JWT.Issuer, true) {
		return tenant.Tenant{}, fmt.Errorf("%w: unexpected issuer %q", ErrInvalidToken, claims.Issuer)
	}
	if s.cfg.JWT.Audience != "" && !claims.VerifyAudience(s.cfg.JWT.Audience, true) {
		return tenant.Tenant{}, fmt.Errorf("%w: unexpected audience %v", ErrInvalidToken, claims.Audience)
	}

	t := tenant.Tenant{
		UserID:   int(claims.UserID),
		ClientID: int(claims.ClientID),
	}
	if claims.PublicKey != "" {
		pk, err := uuid.Parse(claims.PublicKey)
		if err != nil {
			return tenant.Tenant{}, fmt.Errorf("%w: public_key: %v", ErrInvalidToken, err)
		}
		t.PublicKey = pk
	}
	return t, nil
}

// headerTenant reads the identity headers accepted in local environments.
func headerTenant(h http.Header) (tenant.Tenant, error) {
	var t tenant.Tenant
	if v := h.Get(config.HEADER_KEY_X_USER_ID); v != "" {
		id, err := strconv.Atoi(v)
		if err != nil {
			return t, fmt.Errorf("invalid %s: %w", config.HEADER_KEY_X_USER_ID, err)
		}
		t.UserID = id
	}
	if v := h.Get(config.HEADER_KEY_X_CLIENT_ID); v != "" {
		id, err := strconv.Atoi(v)
		if err != nil {
			return t, fmt.Errorf("invalid %s: %w", config.HEADER_KEY_X_CLIENT_ID, err)
		}
		t.ClientID = id
	}
	if v := h.Get(config.HEADER_KEY_X_PUBLIC_KEY); v != "" {
		pk, err := uuid.Parse(v)
		if err != nil {
			return t, fmt.Errorf("invalid %s: %w", config.HEADER_KEY_X_PUBLIC_KEY, err)
		}
		t.PublicKey = pk
	}
	return t, nil
}

func (s *Server) resolveTenant(c echo.Context) (tenant.Tenant, error) {
	auth := c.Request().Header.Get(echo.HeaderAuthorization)
	token, hasBearer := strings.CutPrefix(auth, "Bearer ")

	switch {
	case hasBearer && s.jwtKey != nil:
		return s.parseToken(token)
	case s.cfg.IsLocal() && auth == "":
		return headerTenant(c.Request().Header)
	default:
		return tenant.Tenant{}, ErrMissingCredentials
	}
}

// TenantMiddleware resolves the caller from a bearer token, or from identity
// headers when running locally, and stores it in the request context.
func (s *Server) TenantMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		t, err := s.resolveTenant(c)
		if err == nil && !t.Valid() {
			err = tenant.ErrNoTenant
		}
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, msgUnauthorized).SetInternal(err)
		}
		t.IP = c.RealIP()

		ctx := tenant.NewContext(c.Request().Context(), t)
		c.SetRequest(c.Request().WithContext(ctx))

		return next(c)
	}
}
