package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Session is the authenticated identity carried by a token.
type Session struct {
	UserID   int64
	UserName string
}

// TokenService signs and verifies session tokens (HS256).
type TokenService struct {
	secretKey []byte
	expiresIn time.Duration
}

func NewTokenService(secret string, expiresIn time.Duration) *TokenService {
	return &TokenService{
		secretKey: []byte(secret),
		expiresIn: expiresIn,
	}
}

// TTL returns the configured token lifetime, also used for the session
// cookie max-age.
func (s *TokenService) TTL() time.Duration {
	return s.expiresIn
}

// Generate issues a signed token for the user.
func (s *TokenService) Generate(userID int64, userName string) (string, error) {
	claims := jwt.MapClaims{
		"user_id":   userID,
		"user_name": userName,
		"exp":       time.Now().Add(s.expiresIn).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secretKey)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// Parse verifies a token and returns the session it carries.
func (s *TokenService) Parse(tokenStr string) (Session, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secretKey, nil
	})
	if err != nil {
		return Session{}, fmt.Errorf("parse session token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return Session{}, errors.New("invalid token claims")
	}

	idFloat, ok := claims["user_id"].(float64)
	if !ok || int64(idFloat) <= 0 {
		return Session{}, errors.New("invalid user_id claim")
	}
	name, _ := claims["user_name"].(string)

	return Session{UserID: int64(idFloat), UserName: name}, nil
}
