package httpapi

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

//accessTokenIssuer is the iss claim on issued access tokens
const accessTokenIssuer = "futureself"

//AccessTokenClaims are the claims carried by an access token
type AccessTokenClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

//NewAccessToken returns a signed access token for the given user id, valid for duration
func NewAccessToken(userID, secret string, duration time.Duration) (string, error) {
	now := time.Now()
	claims := &AccessTokenClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(duration)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    accessTokenIssuer,
			Subject:   userID,
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("Could not sign token: %v", err)
	}
	return token, nil
}

//ParseAccessToken verifies token against secret and returns the user id it was issued for
func ParseAccessToken(token, secret string) (userID string, err error) {
	claims := new(AccessTokenClaims)
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return "", fmt.Errorf("Could not parse token: %v", err)
	}
	if !parsed.Valid || claims.UserID == "" {
		return "", errors.New("Could not validate token claims")
	}

	return claims.UserID, nil
}
