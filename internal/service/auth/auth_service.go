// internal/service/auth/auth_service.go
package auth

import (
	"context"
	"fmt"

	"bundl-service/internal/domain/user"
	xerrors "bundl-service/internal/pkg/errors"
	"bundl-service/internal/pkg/jwt"
	"bundl-service/internal/pkg/session"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
)

// Users is the account persistence the auth flow needs.
type Users interface {
	UpsertByWallet(ctx context.Context, walletAddress string) (*user.User, error)
	FindByWallet(ctx context.Context, walletAddress string) (*user.User, error)
}

// AuthService authenticates by wallet signature: the wallet requests a nonce
// message, signs it, and exchanges the signature for a bearer token. No
// passwords anywhere.
type AuthService struct {
	users   Users
	nonces  *session.NonceStore
	limiter *session.RateLimiter
	jwt     *jwt.Manager
	logger  *zap.Logger
}

func NewAuthService(users Users, nonces *session.NonceStore, limiter *session.RateLimiter, jwtManager *jwt.Manager, logger *zap.Logger) *AuthService {
	return &AuthService{
		users:   users,
		nonces:  nonces,
		limiter: limiter,
		jwt:     jwtManager,
		logger:  logger,
	}
}

// VerificationMessage issues the single-use message the wallet must sign.
func (s *AuthService) VerificationMessage(ctx context.Context, walletAddress string) (*user.VerificationMessageResponse, error) {
	if _, err := solana.PublicKeyFromBase58(walletAddress); err != nil {
		return nil, fmt.Errorf("%w: invalid wallet address", xerrors.ErrInvalidInput)
	}
	message, err := s.nonces.Issue(ctx, walletAddress)
	if err != nil {
		return nil, err
	}
	return &user.VerificationMessageResponse{Message: message}, nil
}

// Login verifies the signature over the previously issued nonce message and
// returns a bearer token. The nonce is consumed either way, so a failed
// attempt needs a fresh message.
func (s *AuthService) Login(ctx context.Context, clientIP string, req *user.LoginRequest) (*user.LoginResponse, error) {
	allowed, _, err := s.limiter.CheckLoginAttempt(ctx, clientIP, req.WalletAddress)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, fmt.Errorf("login attempts for wallet %s: %w", req.WalletAddress, xerrors.ErrRateLimited)
	}

	pubkey, err := solana.PublicKeyFromBase58(req.WalletAddress)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid wallet address", xerrors.ErrInvalidInput)
	}
	signature, err := solana.SignatureFromBase58(req.Signature)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid signature encoding", xerrors.ErrInvalidInput)
	}

	nonce, err := s.nonces.Consume(ctx, req.WalletAddress)
	if err != nil {
		return nil, err
	}
	message := session.SignableMessage(req.WalletAddress, nonce)
	if !signature.Verify(pubkey, []byte(message)) {
		s.logger.Warn("signature verification failed", zap.String("wallet", req.WalletAddress))
		return nil, fmt.Errorf("signature does not match wallet: %w", xerrors.ErrUnauthorized)
	}

	u, err := s.users.UpsertByWallet(ctx, req.WalletAddress)
	if err != nil {
		return nil, err
	}

	token, _, err := s.jwt.Generator.Generate(u.ID, u.WalletAddress, u.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	if err := s.limiter.ResetLoginAttempts(ctx, clientIP, req.WalletAddress); err != nil {
		s.logger.Warn("failed to reset login attempts", zap.Error(err))
	}

	s.logger.Info("wallet authenticated",
		zap.String("user_id", u.ID),
		zap.String("wallet", u.WalletAddress))
	return &user.LoginResponse{Token: token, User: u}, nil
}

// Me resolves the authenticated wallet back to its account record.
func (s *AuthService) Me(ctx context.Context, walletAddress string) (*user.User, error) {
	return s.users.FindByWallet(ctx, walletAddress)
}

// Verifier exposes token verification to the auth middleware.
func (s *AuthService) Verifier() *jwt.Verifier {
	return s.jwt.Verifier
}
