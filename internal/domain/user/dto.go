package user

// LoginRequest carries a wallet-signature login attempt. The signature is over
// the verification message previously issued for this wallet.
type LoginRequest struct {
	WalletAddress string `json:"walletAddress" binding:"required"`
	Signature     string `json:"signature" binding:"required"` // base58
}

// LoginResponse returns the bearer token for subsequent calls.
type LoginResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

// VerificationMessageResponse is the nonce message the wallet must sign.
type VerificationMessageResponse struct {
	Message string `json:"message"`
}
