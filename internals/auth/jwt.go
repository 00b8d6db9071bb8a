package auth

import (
	"errors"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/thebowwman/ordertrack/internals/domain"
)

// Claims bind a join token to one order and one role. The token is not an
// identity system; it is how a socket declares which side of the session
// it speaks for.
type Claims struct {
	OrderID string      `json:"order_id"`
	Role    domain.Role `json:"role"`
	jwt.RegisteredClaims
}

func secret() []byte {

	s := os.Getenv("APP_JWT_SECRET")
	if s == "" {
		s = "dev-secret-change-me"
	}

	return []byte(s)
}

func MakeToken(orderID string, role domain.Role, ttl time.Duration) (string, error) {

	claims := Claims{
		OrderID: orderID,
		Role:    role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret())
}

func ParseToken(tok string) (*Claims, error) {

	claims := &Claims{}

	parsed, err := jwt.ParseWithClaims(tok, claims, func(t *jwt.Token) (interface{}, error) {
		return secret(), nil
	})

	if err != nil || !parsed.Valid {

		return nil, errors.New("invalid token")
	}
	return claims, nil
}

func ParseTokenFromRequest(r *http.Request) (*Claims, error) {

	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(strings.ToLower(auth), "bearer") {

		return nil, errors.New("missing bearer token")

	}

	tok := strings.TrimSpace(auth[len("bearer "):])
	return ParseToken(tok)

}
