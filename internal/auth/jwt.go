// Package auth issues and verifies session credentials.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/voluntor/voluntor/internal/models"
)

// credentialTTL matches the 30-day sessions handed out at signin.
const credentialTTL = 30 * 24 * time.Hour

// Verifier signs and validates session credentials, yielding the stable
// identity that owns a connection.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Issue signs a credential for the identity.
func (v *Verifier) Issue(identity models.Identity) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  identity.Email,
		"name": identity.Name,
		"iat":  now.Unix(),
		"exp":  now.Add(credentialTTL).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.secret)
}

// Verify validates a credential and returns the identity it was issued
// for.
func (v *Verifier) Verify(credential string) (models.Identity, error) {
	token, err := jwt.Parse(credential, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return models.Identity{}, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return models.Identity{}, fmt.Errorf("invalid credential")
	}

	email, _ := claims["sub"].(string)
	name, _ := claims["name"].(string)
	if email == "" {
		return models.Identity{}, fmt.Errorf("credential missing subject")
	}
	return models.Identity{Email: email, Name: name}, nil
}
