// Package auth issues and validates the admin API bearer tokens. Tokens
// are random 32-byte values handed out exactly once; only their SHA-256
// hash is persisted.
package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ethvouch/fee-manager/database"
)

// ErrInvalidToken is returned when a presented token matches no active
// stored token.
var ErrInvalidToken = errors.New("invalid auth token")

// Store is the slice of the persistence surface the service needs.
type Store interface {
	CreateAuthToken(ctx context.Context, token database.AuthToken) (*database.AuthToken, error)
	GetAuthToken(ctx context.Context, id uuid.UUID) (*database.AuthToken, error)
	GetAuthTokenByHash(ctx context.Context, hash string) (*database.AuthToken, error)
	ListAuthTokens(ctx context.Context) ([]database.AuthToken, error)
	DeleteAuthToken(ctx context.Context, id uuid.UUID) error
	TouchAuthToken(ctx context.Context, id uuid.UUID) error
	CountAuthTokens(ctx context.Context) (int64, error)
}

// Service owns token issuance and validation.
type Service struct {
	store Store
	log   *logrus.Entry
}

func NewService(store Store, log *logrus.Entry) *Service {
	return &Service{
		store: store,
		log:   log.WithField("component", "auth"),
	}
}

// CreateToken mints a new token and returns both the record and the
// plaintext. The plaintext is not recoverable afterwards.
func (s *Service) CreateToken(ctx context.Context, name string, description *string) (*database.AuthToken, string, error) {
	plaintext, err := generateToken()
	if err != nil {
		return nil, "", fmt.Errorf("generate token: %w", err)
	}
	created, err := s.store.CreateAuthToken(ctx, database.AuthToken{
		ID:          uuid.New(),
		Name:        name,
		Description: description,
		TokenHash:   HashToken(plaintext),
	})
	if err != nil {
		return nil, "", err
	}
	s.log.WithFields(logrus.Fields{"id": created.ID, "name": name}).Info("created auth token")
	return created, plaintext, nil
}

// Validate resolves a presented plaintext token to its stored record and
// marks it used. Unknown and inactive tokens both yield ErrInvalidToken;
// the caller learns nothing about which.
func (s *Service) Validate(ctx context.Context, plaintext string) (*database.AuthToken, error) {
	token, err := s.store.GetAuthTokenByHash(ctx, HashToken(plaintext))
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}
	if !token.Active {
		return nil, ErrInvalidToken
	}
	if err := s.store.TouchAuthToken(ctx, token.ID); err != nil {
		s.log.WithError(err).WithField("id", token.ID).Warn("failed to record token use")
	}
	return token, nil
}

// GetToken loads one token record by ID.
func (s *Service) GetToken(ctx context.Context, id uuid.UUID) (*database.AuthToken, error) {
	return s.store.GetAuthToken(ctx, id)
}

// ListTokens returns all token records, newest first.
func (s *Service) ListTokens(ctx context.Context) ([]database.AuthToken, error) {
	return s.store.ListAuthTokens(ctx)
}

// DeleteToken revokes a token permanently.
func (s *Service) DeleteToken(ctx context.Context, id uuid.UUID) error {
	if err := s.store.DeleteAuthToken(ctx, id); err != nil {
		return err
	}
	s.log.WithField("id", id).Info("deleted auth token")
	return nil
}

// EnsureDefaultToken creates a bootstrap token when no tokens exist yet, so
// a fresh deployment can reach the admin API. The plaintext is returned for
// one-time logging; on subsequent starts it returns empty.
func (s *Service) EnsureDefaultToken(ctx context.Context) (string, error) {
	count, err := s.store.CountAuthTokens(ctx)
	if err != nil {
		return "", fmt.Errorf("count auth tokens: %w", err)
	}
	if count > 0 {
		return "", nil
	}
	desc := "bootstrap token created on first start"
	_, plaintext, err := s.CreateToken(ctx, "default", &desc)
	if err != nil {
		return "", err
	}
	return plaintext, nil
}

// HashToken returns the hex SHA-256 digest stored for a plaintext token.
func HashToken(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}

func generateToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
