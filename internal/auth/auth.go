package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Lllllllleong/lecturenotes/internal/gcp"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	// CookieName carries the session token set at login.
	CookieName = "token"
	// RoleAdmin is the only role allowed through RequireAdmin.
	RoleAdmin = "admin"
	// DefaultTokenTTL is how long an issued session stays valid.
	DefaultTokenTTL = time.Hour
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnknownUser        = fmt.Errorf("%w: user not found", ErrInvalidCredentials)
	ErrWrongPassword      = fmt.Errorf("%w: invalid password", ErrInvalidCredentials)
	ErrInvalidToken       = errors.New("invalid token")
)

// Claims is the JWT payload of an admin session.
type Claims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// TokenManager issues and verifies HS256 session tokens.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenManager(secret string, ttl time.Duration, now func() time.Time) (*TokenManager, error) {
	if secret == "" {
		return nil, fmt.Errorf("token secret cannot be empty")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	if now == nil {
		now = time.Now
	}
	return &TokenManager{secret: []byte(secret), ttl: ttl, now: now}, nil
}

// TTL returns the lifetime given to every issued token.
func (m *TokenManager) TTL() time.Duration { return m.ttl }

// Issue signs a token for username with the given role.
func (m *TokenManager) Issue(username, role string) (string, error) {
	now := m.now()
	claims := Claims{
		Username: username,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify parses a token and returns its claims. Expired, tampered or
// non-HS256 tokens fail with ErrInvalidToken.
func (m *TokenManager) Verify(token string) (*Claims, error) {
	claims := &Claims{}
	keyFunc := func(*jwt.Token) (any, error) { return m.secret, nil }
	parsed, err := jwt.ParseWithClaims(token, claims, keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Authenticator checks admin credentials against bcrypt hashes.
type Authenticator struct {
	users map[string][]byte
}

func NewAuthenticator(users map[string][]byte) *Authenticator {
	return &Authenticator{users: users}
}

// ParseAdminUsers decodes the ADMIN_USERS format: comma separated
// name:bcrypt-hash pairs.
func ParseAdminUsers(raw string) (map[string][]byte, error) {
	users := make(map[string][]byte)
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		name, hash, ok := strings.Cut(entry, ":")
		if !ok || name == "" || hash == "" {
			return nil, fmt.Errorf("malformed admin user entry %q", entry)
		}
		if _, err := bcrypt.Cost([]byte(hash)); err != nil {
			return nil, fmt.Errorf("admin user %s: %w", name, err)
		}
		users[name] = []byte(hash)
	}
	return users, nil
}

// Authenticate returns nil when password matches the stored hash.
func (a *Authenticator) Authenticate(username, password string) error {
	hash, ok := a.users[username]
	if !ok {
		return ErrUnknownUser
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		return ErrWrongPassword
	}
	return nil
}

// Config is the auth configuration shared by the admin functions.
type Config struct {
	Secret string
	Users  map[string][]byte
}

// LoadConfig reads JWT_SECRET and ADMIN_USERS.
func LoadConfig() (*Config, error) {
	secret := gcp.GetEnv("JWT_SECRET", "")
	if secret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable must be set")
	}
	users, err := ParseAdminUsers(gcp.GetEnv("ADMIN_USERS", ""))
	if err != nil {
		return nil, fmt.Errorf("invalid ADMIN_USERS: %w", err)
	}
	return &Config{Secret: secret, Users: users}, nil
}

type claimsKey struct{}

// ClaimsFrom returns the claims RequireAdmin stored on the request context.
func ClaimsFrom(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsKey{}).(*Claims)
	return c, ok
}

// RequireAdmin rejects requests without a valid admin token. The token is read
// from the session cookie, or from a Bearer Authorization header.
func RequireAdmin(tokens *TokenManager, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := tokenFromRequest(r)
		if token == "" {
			http.Error(w, "Access denied. No token provided.", http.StatusUnauthorized)
			return
		}
		claims, err := tokens.Verify(token)
		if err != nil {
			slog.Warn("Rejected admin token", "error", err, "path", r.URL.Path)
			http.Error(w, "Invalid token.", http.StatusForbidden)
			return
		}
		if claims.Role != RoleAdmin {
			http.Error(w, "Admin access required.", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey{}, claims)))
	})
}

func tokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
		return c.Value
	}
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return ""
}
