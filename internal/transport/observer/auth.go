package observer

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims authorize a client to send commands for some players.
type Claims struct {
	Client  string `json:"client"`
	Players []int  `json:"players"`
	jwt.RegisteredClaims
}

func (c *Claims) Allows(player int) bool {
	for _, p := range c.Players {
		if p == player {
			return true
		}
	}
	return false
}

// TokenAuth issues and checks HS256 command tokens.
type TokenAuth struct {
	secret []byte
	issuer string
	now    func() time.Time
}

func NewTokenAuth(secret, issuer string) (*TokenAuth, error) {
	if len(secret) < 16 {
		return nil, errors.New("token secret must be at least 16 bytes")
	}
	if issuer == "" {
		issuer = "serfcraft"
	}
	return &TokenAuth{secret: []byte(secret), issuer: issuer, now: time.Now}, nil
}

// Issue signs a token for client valid for ttl; ttl <= 0 means no expiry.
func (a *TokenAuth) Issue(client string, players []int, ttl time.Duration) (string, error) {
	now := a.now()
	claims := Claims{
		Client:  client,
		Players: players,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   a.issuer,
			Subject:  client,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

func (a *TokenAuth) Validate(token string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(a.issuer),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token claims")
	}
	if claims.Client == "" {
		return nil, errors.New("token has no client")
	}
	return claims, nil
}

// tokenFromRequest looks in Sec-WebSocket-Protocol ("access_token, <token>"),
// then the Authorization bearer, then the token query parameter.
func tokenFromRequest(r *http.Request) string {
	if protos := r.Header.Get("Sec-WebSocket-Protocol"); protos != "" {
		parts := strings.Split(protos, ",")
		if len(parts) == 2 && strings.TrimSpace(parts[0]) == "access_token" {
			return strings.TrimSpace(parts[1])
		}
	}
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	return r.URL.Query().Get("token")
}
