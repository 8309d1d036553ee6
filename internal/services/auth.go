package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/luftkuhl/ninethree-backend/internal/platform/logger"
	"github.com/luftkuhl/ninethree-backend/internal/platform/s3"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUserExists         = errors.New("username already taken")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

const tokenTTL = 30 * 24 * time.Hour

// AuthService manages accounts and issues session tokens. All accounts
// live in one credentials blob; registration and login read-modify-write
// it, which is fine at this system's user count.
type AuthService interface {
	Register(ctx context.Context, username, name, email, password string) error
	Login(ctx context.Context, username, password string) (string, error)
	ValidateToken(token string) (string, error)
}

type userRecord struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

type credentialsBlob struct {
	Credentials struct {
		Usernames map[string]userRecord `json:"usernames"`
	} `json:"credentials"`
}

type authService struct {
	log       *logger.Logger
	blob      BlobStore
	jwtSecret []byte
}

func NewAuthService(log *logger.Logger, blob BlobStore, jwtSecret string) (AuthService, error) {
	if strings.TrimSpace(jwtSecret) == "" {
		return nil, fmt.Errorf("JWT_SECRET is not set")
	}
	return &authService{
		log:       log.With("service", "AuthService"),
		blob:      blob,
		jwtSecret: []byte(jwtSecret),
	}, nil
}

func (s *authService) loadCredentials(ctx context.Context) (*credentialsBlob, error) {
	raw, err := s.blob.Get(ctx, credentialsKey())
	if err != nil {
		if errors.Is(err, s3.ErrNotFound) {
			var blob credentialsBlob
			blob.Credentials.Usernames = map[string]userRecord{}
			return &blob, nil
		}
		return nil, err
	}
	var blob credentialsBlob
	if err := json.Unmarshal(raw, &blob); err != nil {
		return nil, fmt.Errorf("decode credentials: %w", err)
	}
	if blob.Credentials.Usernames == nil {
		blob.Credentials.Usernames = map[string]userRecord{}
	}
	return &blob, nil
}

func (s *authService) saveCredentials(ctx context.Context, blob *credentialsBlob) error {
	raw, err := json.MarshalIndent(blob, "", "  ")
	if err != nil {
		return err
	}
	return s.blob.Put(ctx, credentialsKey(), raw, "application/json")
}

func (s *authService) Register(ctx context.Context, username, name, email, password string) error {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || password == "" {
		return fmt.Errorf("username and password required")
	}
	blob, err := s.loadCredentials(ctx)
	if err != nil {
		return err
	}
	if _, exists := blob.Credentials.Usernames[username]; exists {
		return ErrUserExists
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	blob.Credentials.Usernames[username] = userRecord{
		Email:    strings.TrimSpace(email),
		Name:     strings.TrimSpace(name),
		Password: string(hash),
	}
	if err := s.saveCredentials(ctx, blob); err != nil {
		return err
	}
	s.log.Info("user registered", "username", username)
	return nil
}

func (s *authService) Login(ctx context.Context, username, password string) (string, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	blob, err := s.loadCredentials(ctx)
	if err != nil {
		return "", err
	}
	rec, ok := blob.Credentials.Usernames[username]
	if !ok {
		return "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(rec.Password), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   username,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return "", err
	}
	return token, nil
}

func (s *authService) ValidateToken(tokenStr string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}
	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
