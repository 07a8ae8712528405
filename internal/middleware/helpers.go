// internal/middleware/helpers.go
package middleware

import "github.com/gin-gonic/gin"

// GetUserID gets the authenticated user id from context
func GetUserID(c *gin.Context) (string, bool) {
	v, exists := c.Get("user_id")
	if !exists {
		return "", false
	}
	id, ok := v.(string)
	return id, ok
}

// MustGetUserID gets the user id from context or panics
func MustGetUserID(c *gin.Context) string {
	id, exists := GetUserID(c)
	if !exists {
		panic("user_id not found in context")
	}
	return id
}

// GetWallet gets the authenticated wallet address from context
func GetWallet(c *gin.Context) (string, bool) {
	v, exists := c.Get("wallet")
	if !exists {
		return "", false
	}
	wallet, ok := v.(string)
	return wallet, ok
}

// MustGetWallet gets the wallet address from context or panics
func MustGetWallet(c *gin.Context) string {
	wallet, exists := GetWallet(c)
	if !exists {
		panic("wallet not found in context")
	}
	return wallet
}

// IsAdmin checks if the authenticated user is an admin
func IsAdmin(c *gin.Context) bool {
	role, exists := c.Get("role")
	return exists && role == "admin"
}
