package middleware

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/kbukum/reqkit/errors"
	"github.com/kbukum/reqkit/stack"
)

// AuthType identifies the authentication method.
type AuthType string

const (
	AuthNone   AuthType = "none"
	AuthBearer AuthType = "bearer"
	AuthBasic  AuthType = "basic"
	AuthAPIKey AuthType = "api_key"
	AuthCustom AuthType = "custom"
	AuthJWT    AuthType = "jwt"
)

// AuthConfig configures request authentication.
type AuthConfig struct {
	// Type is the authentication method.
	Type AuthType `yaml:"type" mapstructure:"type" validate:"omitempty,oneof=none bearer basic api_key custom jwt"`
	// Token is the bearer token (AuthBearer).
	Token string `yaml:"token" mapstructure:"token"`
	// Username and Password are the basic auth credentials (AuthBasic).
	Username string `yaml:"username" mapstructure:"username"`
	Password string `yaml:"password" mapstructure:"password"`
	// Key is the API key value (AuthAPIKey).
	Key string `yaml:"key" mapstructure:"key"`
	// In places the API key: "header" (default) or "query".
	In string `yaml:"in" mapstructure:"in" validate:"omitempty,oneof=header query"`
	// Name is the header or query parameter name. Defaults to "X-API-Key".
	Name string `yaml:"name" mapstructure:"name"`
	// JWT signs a fresh bearer token when the cached one nears expiry (AuthJWT).
	JWT *JWTConfig `yaml:"jwt" mapstructure:"jwt"`
	// Apply modifies the request (AuthCustom).
	Apply func(*http.Request) `yaml:"-" mapstructure:"-"`
}

// JWTConfig configures HMAC-signed bearer tokens.
type JWTConfig struct {
	Secret   string         `yaml:"secret" mapstructure:"secret" validate:"required"`
	Method   string         `yaml:"method" mapstructure:"method" validate:"omitempty,oneof=HS256 HS384 HS512"`
	Issuer   string         `yaml:"issuer" mapstructure:"issuer"`
	Subject  string         `yaml:"subject" mapstructure:"subject"`
	Audience []string       `yaml:"audience" mapstructure:"audience"`
	TTL      time.Duration  `yaml:"ttl" mapstructure:"ttl" validate:"gte=0"`
	Claims   map[string]any `yaml:"claims" mapstructure:"claims"`
}

// BearerAuth creates a bearer token auth config.
func BearerAuth(token string) *AuthConfig {
	return &AuthConfig{Type: AuthBearer, Token: token}
}

// BasicAuth creates a basic auth config.
func BasicAuth(username, password string) *AuthConfig {
	return &AuthConfig{Type: AuthBasic, Username: username, Password: password}
}

// APIKeyAuth creates an API key auth config sent via the X-API-Key header.
func APIKeyAuth(key string) *AuthConfig {
	return &AuthConfig{Type: AuthAPIKey, Key: key, In: "header", Name: "X-API-Key"}
}

// APIKeyAuthHeader creates an API key auth config with a custom header name.
func APIKeyAuthHeader(key, headerName string) *AuthConfig {
	return &AuthConfig{Type: AuthAPIKey, Key: key, In: "header", Name: headerName}
}

// APIKeyAuthQuery creates an API key auth config sent as a query parameter.
func APIKeyAuthQuery(key, paramName string) *AuthConfig {
	return &AuthConfig{Type: AuthAPIKey, Key: key, In: "query", Name: paramName}
}

// CustomAuth creates a custom auth config with a request modifier function.
func CustomAuth(fn func(*http.Request)) *AuthConfig {
	return &AuthConfig{Type: AuthCustom, Apply: fn}
}

// JWTAuth creates a signed bearer token auth config.
func JWTAuth(cfg JWTConfig) *AuthConfig {
	return &AuthConfig{Type: AuthJWT, JWT: &cfg}
}

// Auth authenticates each request with cfg. The auth option replaces cfg
// for one request; false or "none" disables authentication.
func Auth(cfg *AuthConfig) stack.Middleware {
	base := newAuthenticator(cfg)
	return func(next stack.Handler) stack.Handler {
		return func(req *http.Request, opts stack.Options) *result {
			a := base
			switch v := opts[OptAuth].(type) {
			case *AuthConfig:
				a = newAuthenticator(v)
			case AuthType:
				if v == AuthNone {
					a = nil
				}
			case bool, string:
				if !opts.Bool(OptAuth, true) || v == string(AuthNone) {
					a = nil
				}
			}
			if a == nil {
				return next(req, opts)
			}

			out := req.Clone(req.Context())
			if err := a.apply(out); err != nil {
				e := errors.InvalidRequest(req, "authentication failed")
				e.Cause = err
				return reject(e)
			}
			return next(out, opts)
		}
	}
}

type authenticator struct {
	cfg *AuthConfig

	mu      sync.Mutex
	token   string
	expires time.Time
}

func newAuthenticator(cfg *AuthConfig) *authenticator {
	if cfg == nil || cfg.Type == "" || cfg.Type == AuthNone {
		return nil
	}
	return &authenticator{cfg: cfg}
}

func (a *authenticator) apply(req *http.Request) error {
	c := a.cfg
	switch c.Type {
	case AuthBearer:
		req.Header.Set("Authorization", "Bearer "+c.Token)
	case AuthBasic:
		req.SetBasicAuth(c.Username, c.Password)
	case AuthAPIKey:
		name := c.Name
		if name == "" {
			name = "X-API-Key"
		}
		if c.In == "query" {
			q := req.URL.Query()
			q.Set(name, c.Key)
			req.URL.RawQuery = q.Encode()
		} else {
			req.Header.Set(name, c.Key)
		}
	case AuthCustom:
		if c.Apply != nil {
			c.Apply(req)
		}
	case AuthJWT:
		token, err := a.jwtToken()
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	default:
		return fmt.Errorf("unsupported auth type %q", c.Type)
	}
	return nil
}

// jwtToken returns the cached token, signing a new one once less than a
// tenth of its lifetime is left.
func (a *authenticator) jwtToken() (string, error) {
	c := a.cfg.JWT
	if c == nil || c.Secret == "" {
		return "", fmt.Errorf("jwt auth requires a secret")
	}
	ttl := c.TTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	now := time.Now()
	if a.token != "" && now.Before(a.expires.Add(-ttl/10)) {
		return a.token, nil
	}

	claims := jwt.MapClaims{}
	for k, v := range c.Claims {
		claims[k] = v
	}
	claims["iat"] = jwt.NewNumericDate(now)
	claims["exp"] = jwt.NewNumericDate(now.Add(ttl))
	if c.Issuer != "" {
		claims["iss"] = c.Issuer
	}
	if c.Subject != "" {
		claims["sub"] = c.Subject
	}
	if len(c.Audience) > 0 {
		claims["aud"] = jwt.ClaimStrings(c.Audience)
	}

	method := jwt.GetSigningMethod(c.Method)
	if c.Method == "" {
		method = jwt.SigningMethodHS256
	}
	if method == nil {
		return "", fmt.Errorf("unsupported jwt signing method %q", c.Method)
	}
	token, err := jwt.NewWithClaims(method, claims).SignedString([]byte(c.Secret))
	if err != nil {
		return "", fmt.Errorf("sign jwt: %w", err)
	}
	a.token = token
	a.expires = now.Add(ttl)
	return token, nil
}
