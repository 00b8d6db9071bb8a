package auth

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thebowwman/ordertrack/internals/domain"
)

func TestTokenRoundTrip(t *testing.T) {
	tok, err := MakeToken("ord-1", domain.RoleAgent, time.Hour)
	require.NoError(t, err)

	claims, err := ParseToken(tok)
	require.NoError(t, err)
	assert.Equal(t, "ord-1", claims.OrderID)
	assert.Equal(t, domain.RoleAgent, claims.Role)
}

func TestParseToken_Garbage(t *testing.T) {
	_, err := ParseToken("not-a-token")
	assert.Error(t, err)
}

func TestParseToken_Expired(t *testing.T) {
	tok, err := MakeToken("ord-1", domain.RoleCustomer, -time.Minute)
	require.NoError(t, err)

	_, err = ParseToken(tok)
	assert.Error(t, err)
}

func TestParseTokenFromRequest(t *testing.T) {
	tok, err := MakeToken("ord-1", domain.RoleCustomer, time.Hour)
	require.NoError(t, err)

	req, _ := http.NewRequest(http.MethodGet, "/v1/orders/ord-1", nil)
	req.Header.Set("Authorization", "Bearer "+tok)

	claims, err := ParseTokenFromRequest(req)
	require.NoError(t, err)
	assert.Equal(t, "ord-1", claims.OrderID)

	req.Header.Del("Authorization")
	_, err = ParseTokenFromRequest(req)
	assert.Error(t, err)
}
