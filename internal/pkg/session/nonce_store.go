// internal/pkg/session/nonce_store.go
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	xerrors "bundl-service/internal/pkg/errors"

	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"
)

// NonceStore issues and consumes single-use login nonces. A nonce is bound to
// a wallet address, expires on its own, and is deleted atomically on
// consumption so a captured signature cannot be replayed.
type NonceStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewNonceStore(client *redis.Client) *NonceStore {
	return &NonceStore{client: client, ttl: 5 * time.Minute}
}

// Issue creates a fresh nonce for the wallet and returns the message the
// wallet must sign.
func (s *NonceStore) Issue(ctx context.Context, walletAddress string) (string, error) {
	nonce := ulid.Make().String()
	key := s.key(walletAddress)

	if err := s.client.Set(ctx, key, nonce, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("failed to store login nonce: %w", err)
	}
	return SignableMessage(walletAddress, nonce), nil
}

// Consume fetches and deletes the wallet's nonce in one round trip. A missing
// or expired nonce is an authentication failure.
func (s *NonceStore) Consume(ctx context.Context, walletAddress string) (string, error) {
	key := s.key(walletAddress)

	nonce, err := s.client.GetDel(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", fmt.Errorf("no login nonce for wallet %s: %w", walletAddress, xerrors.ErrUnauthorized)
	}
	if err != nil {
		return "", fmt.Errorf("failed to consume login nonce: %w", err)
	}
	return nonce, nil
}

func (s *NonceStore) key(walletAddress string) string {
	return fmt.Sprintf("auth:nonce:%s", walletAddress)
}

// SignableMessage is the exact text a wallet signs to prove ownership.
func SignableMessage(walletAddress, nonce string) string {
	return fmt.Sprintf("Sign this message to authenticate with Bundl.\n\nWallet: %s\nNonce: %s", walletAddress, nonce)
}
