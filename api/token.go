package api

import (
	"crypto"
	"crypto/ed25519"
	"crypto/x509"
	"encoding/pem"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// RoleAdmin 平台管理員角色，可代替賣家執行封鎖與查詢操作
const RoleAdmin = "ADMIN"

type Token struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

func ParseAndValidateToken(tokenString string, key crypto.PublicKey) (*Token, error) {
	const op = "ParseToken"
	token, err := jwt.ParseWithClaims(tokenString, &Token{}, func(token *jwt.Token) (interface{}, error) {
		return key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodEdDSA.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("%s: token is invalid", op)
	}
	claims, ok := token.Claims.(*Token)
	if !ok {
		return nil, fmt.Errorf("%s: token claims are invalid", op)
	}
	return claims, nil
}

// ParseEd25519PublicKey 解析PEM格式的Ed25519公鑰
func ParseEd25519PublicKey(pemString string) (ed25519.PublicKey, error) {
	const op = "ParseEd25519PublicKey"
	block, _ := pem.Decode([]byte(pemString))
	if block == nil {
		return nil, fmt.Errorf("[%s] Fail to decode PEM block", op)
	}
	key, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("[%s] Fail to parse public key, err=%w", op, err)
	}
	edKey, ok := key.(ed25519.PublicKey)
	if !ok {
		return nil, fmt.Errorf("[%s] Public key is not an Ed25519 key", op)
	}
	return edKey, nil
}
