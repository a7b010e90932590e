package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/amaeats/authkit/scope"
)

var (
	// ErrExpired reports a structurally valid token whose own expiry has
	// passed. It is terminal: expired tokens are never retried against
	// fallback secrets.
	ErrExpired = errors.New("access token expired")
	// ErrInvalid collapses every other verification failure (malformed
	// input, wrong algorithm, signature mismatch under every registered
	// secret) so callers never learn which secret generation a token
	// belonged to.
	ErrInvalid = errors.New("access token invalid")
)

// Config defines codec construction parameters. The Secret signs and is
// tried first on verification; FallbackSecrets are verify-only, tried in
// order.
type Config struct {
	AccessTTL       time.Duration
	Secret          []byte
	FallbackSecrets [][]byte
	Issuer          string
	Leeway          time.Duration
}

// Manager is the stateless access-token codec. Safe for concurrent use.
type Manager struct {
	config  Config
	secrets [][]byte
	parser  *jwt.Parser
}

// AccessClaims is the access-token payload. Subject carries the user ID;
// Scopes may be absent in tokens minted before the scope claim existed, in
// which case verification derives them from Role.
type AccessClaims struct {
	Email  string   `json:"email,omitempty"`
	Role   string   `json:"role,omitempty"`
	Scopes []string `json:"scopes,omitempty"`
	jwt.RegisteredClaims
}

// NewManager validates cfg and builds the codec.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.AccessTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if len(cfg.Secret) == 0 {
		return nil, errors.New("signing secret required")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	for _, fb := range cfg.FallbackSecrets {
		if len(fb) == 0 {
			return nil, errors.New("fallback secret set contains empty secret")
		}
	}

	secrets := make([][]byte, 0, 1+len(cfg.FallbackSecrets))
	secrets = append(secrets, cfg.Secret)
	secrets = append(secrets, cfg.FallbackSecrets...)

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	}
	if cfg.Leeway > 0 {
		options = append(options, jwt.WithLeeway(cfg.Leeway))
	}
	if cfg.Issuer != "" {
		options = append(options, jwt.WithIssuer(cfg.Issuer))
	}

	return &Manager{
		config:  cfg,
		secrets: secrets,
		parser:  jwt.NewParser(options...),
	}, nil
}

// CreateAccess mints an access token for the given identity. Signing always
// uses the current secret; the scope set is embedded so verification stays a
// pure codec operation for current-generation tokens.
func (m *Manager) CreateAccess(userID, email, role string, scopes []string) (string, error) {
	now := time.Now()
	claims := AccessClaims{
		Email:  email,
		Role:   role,
		Scopes: scopes,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.config.AccessTTL)),
		},
	}
	if m.config.Issuer != "" {
		claims.Issuer = m.config.Issuer
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secrets[0])
}

// ParseAccess verifies a token against the secret registry and returns its
// claims. Outcomes per secret are typed: expired stops the walk with
// [ErrExpired]; a signature mismatch falls through to the next secret; any
// other failure stops with [ErrInvalid]. Valid payloads without a scope
// claim get scopes derived from their role.
func (m *Manager) ParseAccess(tokenStr string) (*AccessClaims, error) {
	for _, secret := range m.secrets {
		claims, err := m.parseWithSecret(tokenStr, secret)
		switch {
		case err == nil:
			if len(claims.Scopes) == 0 {
				claims.Scopes = scope.ScopesFor(claims.Role)
			}
			return claims, nil
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			continue
		default:
			return nil, ErrInvalid
		}
	}

	return nil, ErrInvalid
}

func (m *Manager) parseWithSecret(tokenStr string, secret []byte) (*AccessClaims, error) {
	token, err := m.parser.ParseWithClaims(tokenStr, &AccessClaims{}, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*AccessClaims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}
