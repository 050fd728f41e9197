// Package guards provides authentication guards for wired controllers.
//
// Register the module once and reference the guards on controllers or
// handlers:
//
//	root := wired.NewModule("app",
//	    wired.Imports(guards.Module(guards.Config{Secret: []byte(secret)})),
//	    wired.Controllers(wired.Controller[Users]("users",
//	        wired.UseGuards(guards.JWTGuardClass, guards.RolesGuardClass),
//	        wired.Delete(":id", "Remove", wired.SetMetadata(guards.RolesKey, []string{"admin"})),
//	    )),
//	)
package guards

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/junioryono/wired"
)

// ConfigToken provides the guard configuration.
const ConfigToken = wired.Name("JWT_CONFIG")

// Config configures JWT verification.
type Config struct {
	// Secret signs and verifies HS256 tokens.
	Secret []byte

	// TTL is the lifetime of tokens created by Sign. Defaults to one hour.
	TTL time.Duration

	// Header holding the token. Defaults to Authorization.
	Header string
}

func (c *Config) header() string {
	if c.Header == "" {
		return "Authorization"
	}
	return c.Header
}

func (c *Config) ttl() time.Duration {
	if c.TTL <= 0 {
		return time.Hour
	}
	return c.TTL
}

// Module returns a global module providing the configuration and the
// guards.
func Module(cfg Config) *wired.Module {
	return wired.NewModule("guards",
		wired.IsGlobal(),
		wired.Providers(
			wired.UseValue(ConfigToken, &cfg),
			JWTGuardClass,
			RolesGuardClass,
		),
		wired.Exports(ConfigToken, JWTGuardClass, RolesGuardClass),
	)
}

type claimsKey struct{}

// JWTGuard admits requests carrying a valid bearer token. The token's
// claims are stored on the execution context.
type JWTGuard struct {
	Config *Config      `inject:"JWT_CONFIG"`
	Logger wired.Logger `inject:"APP_LOGGER"`
}

// JWTGuardClass declares JWTGuard.
var JWTGuardClass = wired.GuardClass[JWTGuard]()

// CanActivate implements wired.Guard.
func (g *JWTGuard) CanActivate(ctx *wired.ExecutionContext) (bool, error) {
	r := ctx.SwitchToHTTP().Request()

	raw, ok := bearer(r, g.Config.header())
	if !ok {
		return false, wired.Unauthorized("missing bearer token")
	}

	claims, err := Verify(g.Config, raw)
	if err != nil {
		g.Logger.Debug("rejected token", "requestId", ctx.RequestID(), "error", err)
		return false, wired.Unauthorized("invalid token")
	}

	ctx.Set(claimsKey{}, claims)
	return true, nil
}

func bearer(r *http.Request, header string) (string, bool) {
	value := r.Header.Get(header)
	scheme, token, ok := strings.Cut(value, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", false
	}
	return strings.TrimSpace(token), true
}

// Claims returns the claims stored by JWTGuard.
func Claims(ctx *wired.ExecutionContext) (jwt.MapClaims, bool) {
	v, ok := ctx.Value(claimsKey{})
	if !ok {
		return nil, false
	}
	claims, ok := v.(jwt.MapClaims)
	return claims, ok
}

// Sign creates an HS256 token for subject with the given roles.
func Sign(cfg *Config, subject string, roles ...string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   subject,
		"roles": roles,
		"iat":   now.Unix(),
		"exp":   now.Add(cfg.ttl()).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(cfg.Secret)
}

// Verify parses raw and checks its signature and expiry.
func Verify(cfg *Config, raw string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(raw, func(token *jwt.Token) (any, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return cfg.Secret, nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}
