package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/wrc-program/attendance/internal/clock"
)

const (
	adminSubject      = "admin"
	defaultSessionTTL = 12 * time.Hour
)

var (
	ErrCodeRequired  = errors.New("code is required")
	ErrInvalidCode   = errors.New("invalid code")
	ErrNotConfigured = errors.New("admin access is not configured")
	ErrInvalidToken  = errors.New("invalid session token")
	ErrTokenExpired  = errors.New("session has expired")
)

// Claims carried by an admin session token.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Session is an issued admin bearer token.
type Session struct {
	Token     string
	ExpiresAt time.Time
}

// Service checks the shared admin code and issues signed sessions.
type Service struct {
	hash   []byte
	secret []byte
	ttl    time.Duration
	clock  clock.Clock
	parser *jwt.Parser
}

// NewService hashes the admin code once. An empty code leaves admin access
// disabled; every login then fails with ErrNotConfigured.
func NewService(code string, sessionSecret []byte, ttl time.Duration, clk clock.Clock) (*Service, error) {
	if clk == nil {
		clk = clock.Real()
	}
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	s := &Service{ttl: ttl, clock: clk}
	s.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(clk.Now),
		jwt.WithSubject(adminSubject),
		jwt.WithExpirationRequired(),
	)
	if code == "" {
		return s, nil
	}
	if len(sessionSecret) == 0 {
		return nil, errors.New("admin session secret is required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash admin code: %w", err)
	}
	s.hash = hash
	s.secret = append([]byte(nil), sessionSecret...)
	return s, nil
}

// Enabled reports whether an admin code was configured.
func (s *Service) Enabled() bool {
	return len(s.hash) > 0
}

// Login exchanges the admin code for a session token.
func (s *Service) Login(code string) (Session, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return Session{}, ErrCodeRequired
	}
	if !s.Enabled() {
		return Session{}, ErrNotConfigured
	}
	if err := bcrypt.CompareHashAndPassword(s.hash, []byte(code)); err != nil {
		return Session{}, ErrInvalidCode
	}

	now := s.clock.Now()
	exp := now.Add(s.ttl)
	claims := Claims{
		Role: adminSubject,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   adminSubject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return Session{}, fmt.Errorf("sign session: %w", err)
	}
	return Session{Token: signed, ExpiresAt: exp}, nil
}

// Authorize validates a bearer token issued by Login.
func (s *Service) Authorize(token string) (*Claims, error) {
	if !s.Enabled() {
		return nil, ErrNotConfigured
	}
	claims := &Claims{}
	_, err := s.parser.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if errors.Is(err, jwt.ErrTokenExpired) {
		return nil, ErrTokenExpired
	}
	if err != nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
