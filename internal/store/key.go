package store

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AnonRole is the role expected in a public store key.
const AnonRole = "anon"

// KeyInfo holds the claims of a store API key that matter at startup.
type KeyInfo struct {
	Role      string
	Ref       string
	ExpiresAt time.Time
}

// InspectKey decodes a JWT-format API key without verifying its signature.
// The key is only checked for obvious misconfiguration; the store verifies it.
func InspectKey(key string) (*KeyInfo, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(key, claims); err != nil {
		return nil, fmt.Errorf("api key is not a JWT: %w", err)
	}

	info := &KeyInfo{}
	info.Role, _ = claims["role"].(string)
	info.Ref, _ = claims["ref"].(string)
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		info.ExpiresAt = exp.Time
	}
	return info, nil
}

// Problems lists reasons the key is unlikely to work.
func (k *KeyInfo) Problems(now time.Time) []string {
	var problems []string
	if k.Role != AnonRole {
		problems = append(problems, fmt.Sprintf("key role is %q, expected %q", k.Role, AnonRole))
	}
	if !k.ExpiresAt.IsZero() && now.After(k.ExpiresAt) {
		problems = append(problems, "key expired at "+k.ExpiresAt.UTC().Format(time.RFC3339))
	}
	return problems
}
