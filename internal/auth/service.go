// Package auth provides the identity provider: sign up, sign in, sign out
// and token validation.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/narvanalabs/boardroom/internal/models"
	"github.com/narvanalabs/boardroom/internal/store"
	"golang.org/x/crypto/bcrypt"
)

// Common errors returned by the auth service.
var (
	ErrInvalidToken       = errors.New("invalid token")
	ErrExpiredToken       = errors.New("token has expired")
	ErrRevokedToken       = errors.New("token has been revoked")
	ErrMissingClaims      = errors.New("missing required claims")
	ErrInvalidSignature   = errors.New("invalid token signature")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUserExists         = errors.New("username or email already registered")
)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 8

// Claims represents the JWT claims structure.
type Claims struct {
	TokenID string    `json:"jti"`
	UserID  string    `json:"user_id"`
	Email   string    `json:"email"`
	Exp     time.Time `json:"exp"`
}

// Config holds authentication configuration.
type Config struct {
	JWTSecret   []byte
	TokenExpiry time.Duration
}

// Service provides authentication functionality.
type Service struct {
	jwtSecret   []byte
	tokenExpiry time.Duration
	users       store.UserStore
	logger      *slog.Logger

	mu      sync.Mutex
	revoked map[string]time.Time // token ID -> expiry
}

// NewService creates a new authentication service. users may be nil when
// only token handling is needed.
func NewService(cfg *Config, users store.UserStore, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		jwtSecret:   cfg.JWTSecret,
		tokenExpiry: cfg.TokenExpiry,
		users:       users,
		logger:      logger,
		revoked:     make(map[string]time.Time),
	}
}

// SignUp registers a new user.
func (s *Service) SignUp(ctx context.Context, username, email, password string) (*models.User, error) {
	user := models.User{
		Username: strings.TrimSpace(username),
		Email:    strings.ToLower(strings.TrimSpace(email)),
	}
	if err := user.Validate(); err != nil {
		return nil, err
	}
	if len(password) < MinPasswordLength {
		return nil, &models.FieldError{Field: "password", Err: models.ErrPasswordTooShort}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	rec := &store.UserRecord{User: user, PasswordHash: string(hash)}
	if err := s.users.Create(ctx, rec); err != nil {
		if errors.Is(err, store.ErrDuplicateKey) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("creating user: %w", err)
	}

	s.logger.Info("user signed up", "user_id", rec.ID, "username", rec.Username)
	return &rec.User, nil
}

// SignIn checks the credentials and issues a token. login is a username or
// an email address.
func (s *Service) SignIn(ctx context.Context, login, password string) (string, *models.User, error) {
	rec, err := s.users.GetByLogin(ctx, strings.TrimSpace(login))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, fmt.Errorf("looking up user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(rec.PasswordHash), []byte(password)); err != nil {
		s.logger.Debug("password mismatch", "user_id", rec.ID)
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.GenerateToken(rec.ID, rec.Email)
	if err != nil {
		return "", nil, err
	}
	return token, &rec.User, nil
}

// SignOut revokes the token until it would have expired anyway.
func (s *Service) SignOut(tokenString string) error {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, exp := range s.revoked {
		if now.After(exp) {
			delete(s.revoked, id)
		}
	}
	s.revoked[claims.TokenID] = claims.Exp
	return nil
}

// CurrentUser returns the user a token was issued to.
func (s *Service) CurrentUser(ctx context.Context, tokenString string) (*models.User, error) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return s.users.Get(ctx, claims.UserID)
}

// GenerateToken creates a new JWT token for the given user.
func (s *Service) GenerateToken(userID, email string) (string, error) {
	if userID == "" {
		return "", ErrMissingClaims
	}

	now := time.Now()
	exp := now.Add(s.tokenExpiry)

	claims := jwt.MapClaims{
		"jti":   uuid.New().String(),
		"sub":   userID,
		"email": email,
		"iat":   now.Unix(),
		"exp":   exp.Unix(),
		"nbf":   now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(s.jwtSecret)
	if err != nil {
		s.logger.Error("failed to sign token", "error", err)
		return "", fmt.Errorf("signing token: %w", err)
	}

	return signedToken, nil
}

// ValidateToken validates a JWT token and returns the claims. Revoked tokens
// are rejected with ErrRevokedToken.
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrInvalidToken
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		if errors.Is(err, jwt.ErrSignatureInvalid) {
			return nil, ErrInvalidSignature
		}
		return nil, ErrInvalidToken
	}

	if !token.Valid {
		return nil, ErrInvalidToken
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	userID, ok := mapClaims["sub"].(string)
	if !ok || userID == "" {
		return nil, ErrMissingClaims
	}
	tokenID, _ := mapClaims["jti"].(string)
	email, _ := mapClaims["email"].(string)

	expFloat, ok := mapClaims["exp"].(float64)
	if !ok {
		return nil, ErrMissingClaims
	}
	exp := time.Unix(int64(expFloat), 0)

	if tokenID != "" && s.isRevoked(tokenID) {
		return nil, ErrRevokedToken
	}

	return &Claims{
		TokenID: tokenID,
		UserID:  userID,
		Email:   email,
		Exp:     exp,
	}, nil
}

func (s *Service) isRevoked(tokenID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.revoked[tokenID]
	return ok
}

// ExtractBearerToken extracts the token from a Bearer authorization header.
func ExtractBearerToken(authHeader string) string {
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}

	return strings.TrimSpace(parts[1])
}
