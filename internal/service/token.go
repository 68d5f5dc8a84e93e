package service

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	defaultAdminTokenTTL    = 12 * time.Hour
	defaultCustomerTokenTTL = 30 * 24 * time.Hour
)

// JWTClaims 后台 JWT 声明
type JWTClaims struct {
	AdminID      uint   `json:"admin_id"`
	Username     string `json:"username"`
	TokenVersion uint64 `json:"token_version"`
	jwt.RegisteredClaims
}

// CustomerClaims 客户端 Token 声明
type CustomerClaims struct {
	CustomerID   uint   `json:"customer_id"`
	TokenVersion uint64 `json:"token_version"`
	jwt.RegisteredClaims
}

func registeredClaims(issuer string, now time.Time, ttl time.Duration) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		Issuer:    issuer,
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
	}
}

func signHS256(secret string, claims jwt.Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// parseHS256 只接受 HS256；issuer 非空时同时校验签发方
func parseHS256[T jwt.Claims](raw, secret, issuer string, claims T) (T, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if issuer = strings.TrimSpace(issuer); issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	token, err := jwt.NewParser(opts...).ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return claims, ErrInvalidToken
	}
	return claims, nil
}
