package jwt

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt"
)

// CreateUserToken mints the token a client presents when opening a signaling
// connection. validUntil of 0 defaults to 24h.
func CreateUserToken(userID string, secret []byte, validUntil int64) (string, error) {
	if validUntil == 0 {
		validUntil = time.Now().Add(24 * time.Hour).Unix()
	}

	claims := jwt.MapClaims{
		"id":  userID,
		"exp": validUntil,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// ParseUserID validates the token and returns the user id it carries.
func ParseUserID(tokenString string, secret []byte) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return "", err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("invalid token claims")
	}

	if exp, ok := claims["exp"].(float64); ok {
		if time.Now().Unix() > int64(exp) {
			return "", fmt.Errorf("token expired")
		}
	}

	userID, ok := claims["id"].(string)
	if !ok || userID == "" {
		return "", fmt.Errorf("token missing user id")
	}
	return userID, nil
}
