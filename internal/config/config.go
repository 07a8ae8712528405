package config

import (
	"os"
	"time"

	"bundl-service/internal/pkg/jwt"
)

type AppConfig struct {
	// Server
	HTTPAddr  string
	RedisAddr string
	RedisPass string

	// JWT
	JWT jwt.Config

	// Chain
	RPCURL              string
	ProgramID           string
	USDCMint            string
	AuthorityPrivateKey string
}

// Load loads environment variables into AppConfig.
func Load() AppConfig {
	return AppConfig{
		HTTPAddr:  getEnv("HTTP_ADDR", ":8000"),
		RedisAddr: getEnv("REDIS_ADDR", "redis-bundl:6379"),
		RedisPass: getEnv("REDIS_PASS", ""),

		JWT: jwt.Config{
			PrivPath: getEnv("JWT_PRIVATE_KEY_PATH", "/app/secrets/jwt_private.pem"),
			PubPath:  getEnv("JWT_PUBLIC_KEY_PATH", "/app/secrets/jwt_public.pem"),
			Issuer:   "bundl-service",
			Audience: "bundl-users",
			TTL:      720 * time.Hour,
			KID:      "bundl-key",
		},

		RPCURL:              getEnv("RPC_URL", "https://api.devnet.solana.com"),
		ProgramID:           getEnv("PROGRAM_ID", ""),
		USDCMint:            getEnv("USDC_MINT", "4zMMC9srt5Ri5X14GAgXhaHii3GnPAEERYPJgZJDncDU"),
		AuthorityPrivateKey: getEnv("AUTHORITY_PRIVATE_KEY", ""),
	}
}

// --- Helper functions ---

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
