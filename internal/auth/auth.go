package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/golang-jwt/jwt/v4"

	"github.com/nhle/company-tasks/internal/filter"
	"github.com/nhle/company-tasks/internal/model"
)

// Supported values of auth.mode.
const (
	ModeHS256 = "hs256"
	ModeJWKS  = "jwks"
)

// leeway tolerates clock skew between the token issuer and this host.
const leeway = time.Minute

// Authenticator extracts the caller's user ID from an Authorization header.
type Authenticator interface {
	UserIDFromAuthHeader(h string) (string, error)
}

// Auth validates incoming JWT bearer tokens, either with a shared HS256
// secret or with RS256 keys from a JWKS endpoint.
type Auth struct {
	JWKS     *keyfunc.JWKS
	Secret   []byte
	Audience string
	Issuer   string
}

// NewAuth creates an Auth verifying RS256 tokens against jwks.
func NewAuth(jwks *keyfunc.JWKS, audience, issuer string) *Auth {
	return &Auth{JWKS: jwks, Audience: audience, Issuer: issuer}
}

// NewLocalAuth creates an Auth verifying HS256 tokens signed with secret.
func NewLocalAuth(secret []byte, audience string) *Auth {
	return &Auth{Secret: secret, Audience: audience}
}

// FromConfig builds an Auth for the configured mode. In jwks mode the key
// set is fetched from https://<domain>/.well-known/jwks.json and refreshed
// in the background.
func FromConfig(cfg model.AuthConfig, secret string) (*Auth, error) {
	switch cfg.Mode {
	case ModeHS256:
		if secret == "" {
			return nil, errors.New("auth.secret is required in hs256 mode")
		}
		return NewLocalAuth([]byte(secret), cfg.Audience), nil
	case ModeJWKS:
		if cfg.Domain == "" || cfg.Audience == "" {
			return nil, errors.New("auth.domain and auth.audience are required in jwks mode")
		}
		jwksURL := fmt.Sprintf("https://%s/.well-known/jwks.json", cfg.Domain)
		jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{RefreshInterval: time.Hour})
		if err != nil {
			return nil, fmt.Errorf("fetching jwks: %w", err)
		}
		return NewAuth(jwks, cfg.Audience, "https://"+cfg.Domain+"/"), nil
	default:
		return nil, fmt.Errorf("unsupported auth mode %q", cfg.Mode)
	}
}

// Close stops background JWKS refreshes.
func (a *Auth) Close() {
	if a.JWKS != nil {
		a.JWKS.EndBackground()
	}
}

// UserIDFromAuthHeader extracts the user identifier from the Authorization header.
func (a *Auth) UserIDFromAuthHeader(h string) (string, error) {
	if h == "" {
		return "", unauthorized("missing authorization header")
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", unauthorized("bad auth header")
	}

	tokenStr := strings.TrimSpace(parts[1])
	if strings.Count(tokenStr, ".") != 2 {
		return "", unauthorized("bad auth header")
	}

	var (
		token *jwt.Token
		err   error
	)
	if a.JWKS != nil {
		parser := jwt.NewParser(jwt.WithValidMethods([]string{"RS256"}), jwt.WithoutClaimsValidation())
		token, err = parser.Parse(tokenStr, a.JWKS.Keyfunc)
	} else {
		parser := jwt.NewParser(jwt.WithValidMethods([]string{"HS256"}), jwt.WithoutClaimsValidation())
		token, err = parser.Parse(tokenStr, func(*jwt.Token) (interface{}, error) {
			return a.Secret, nil
		})
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", filter.ErrUnauthorized, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", unauthorized("invalid claims")
	}

	now := time.Now()
	if !claims.VerifyExpiresAt(now.Add(-leeway).Unix(), true) {
		return "", unauthorized("token expired")
	}
	if !claims.VerifyNotBefore(now.Add(leeway).Unix(), false) {
		return "", unauthorized("token not valid yet")
	}
	if a.Audience != "" && !claims.VerifyAudience(a.Audience, true) {
		return "", unauthorized("invalid audience")
	}
	if a.Issuer != "" && !claims.VerifyIssuer(a.Issuer, true) {
		return "", unauthorized("invalid issuer")
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", unauthorized("missing sub")
	}
	return sub, nil
}

// IssueToken mints an HS256 token for userID, valid for ttl. Used for
// local development and service accounts in hs256 mode.
func IssueToken(secret []byte, userID, audience string, ttl time.Duration) (string, error) {
	if len(secret) == 0 {
		return "", errors.New("signing secret is empty")
	}
	if userID == "" {
		return "", errors.New("user id is empty")
	}
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	if audience != "" {
		claims.Audience = jwt.ClaimStrings{audience}
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func unauthorized(reason string) error {
	return fmt.Errorf("%w: %s", filter.ErrUnauthorized, reason)
}
