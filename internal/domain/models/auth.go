package models

import "github.com/golang-jwt/jwt/v5"

// Claims is the subset of access token claims the knowledge base reads.
// The subject is the user id recorded as creator, reviewer or editor.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
	Name  string `json:"name"`
}

// GetUserID returns the user id from the subject claim
func (c *Claims) GetUserID() string {
	return c.Subject
}
