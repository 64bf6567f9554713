package utils

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/saxenaaman628/ranker/internal/models"
)

// Claims carried by a poll access token.
type Claims struct {
	PollID string `json:"poll_id"`
	Name   string `json:"name"`
	jwt.RegisteredClaims
}

// Authenticator issues and verifies HS256 poll access tokens.
type Authenticator struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewAuthenticator(secret string, ttl time.Duration) *Authenticator {
	return &Authenticator{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (a *Authenticator) GenerateToken(id models.Identity) (string, error) {
	now := a.now()
	claims := Claims{
		PollID: id.PollID,
		Name:   id.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", models.ErrTokenCreation
	}
	return signed, nil
}

// Verify resolves a token to the identity it was issued for.
func (a *Authenticator) Verify(token string) (models.Identity, error) {
	if token == "" {
		return models.Identity{}, models.ErrMissingCredentials
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil || claims.Subject == "" || claims.PollID == "" {
		return models.Identity{}, models.ErrInvalidToken
	}

	return models.Identity{UserID: claims.Subject, PollID: claims.PollID, Name: claims.Name}, nil
}
