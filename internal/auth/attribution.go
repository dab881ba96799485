package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const attributionIssuer = "learnhub-affiliate"

// Attribution is the payload of the signed affiliate cookie.
type Attribution struct {
	AffiliateID uint   `json:"affiliate_id"`
	ClickID     uint   `json:"click_id"`
	Code        string `json:"code"`
	jwt.RegisteredClaims
}

// SignAttribution issues an attribution token valid for lifetime from now.
func SignAttribution(secret string, a Attribution, now time.Time, lifetime time.Duration) (string, error) {
	a.RegisteredClaims = jwt.RegisteredClaims{
		Issuer:    attributionIssuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(lifetime)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, a).SignedString([]byte(secret))
}

// ParseAttribution verifies an attribution token against the clock now.
func ParseAttribution(secret, tokenString string, now time.Time) (*Attribution, error) {
	a := &Attribution{}
	token, err := jwt.ParseWithClaims(tokenString, a, hmacKey(secret),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(attributionIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil || !token.Valid || a.AffiliateID == 0 || a.ClickID == 0 {
		return nil, ErrInvalidToken
	}
	return a, nil
}
