package auth

import "github.com/golang-jwt/jwt/v5"

// Claims are the only supported JWT claims shape for this service.
// Tokens identify operator tooling and internal jobs, never end users;
// widget traffic is authorized by the admission checks, not by JWT.
type Claims struct {
	jwt.RegisteredClaims

	// ServiceID names the calling service or operator tool.
	ServiceID string `json:"service_id"`
	Role      string `json:"role"`
}
