package models

import (
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
)

var tokenAlgorithms = []jose.SignatureAlgorithm{
	jose.RS256, jose.RS384, jose.RS512,
	jose.ES256, jose.ES384, jose.ES512,
	jose.PS256, jose.PS384, jose.PS512,
	jose.HS256, jose.HS384, jose.HS512,
}

// Read the claims of a JWT bearer token without verifying its signature.
// The service verifies the token; the claims are only used for diagnostics.
func TokenClaims(token string) (*jwt.Claims, error) {
	j, err := jwt.ParseSigned(token, tokenAlgorithms)
	if err != nil {
		return nil, err
	}

	var claims jwt.Claims
	err = j.UnsafeClaimsWithoutVerification(&claims)
	if err != nil {
		return nil, err
	}
	return &claims, nil
}

// Report whether a JWT bearer token is past its expiry.
// Opaque tokens and tokens without exp are never expired.
func TokenExpired(token string, now time.Time) (bool, time.Time) {
	claims, err := TokenClaims(token)
	if err != nil || claims.Expiry == nil {
		return false, time.Time{}
	}
	exp := claims.Expiry.Time()
	return now.After(exp), exp
}
