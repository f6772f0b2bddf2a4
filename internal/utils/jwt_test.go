package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahmadqo/bengkel-pinjam/internal/model"
)

func TestTokenPairRoundTrip(t *testing.T) {
	claims := model.JWTClaims{UserID: "0b8f4c1e-0000-4000-8000-000000000001", Email: "budi@sekolah.sch.id", Role: "siswa", Name: "Budi"}

	pair, err := GenerateTokenPair(claims, "rahasia", 1, 24)
	require.NoError(t, err)

	got, err := ValidateToken(pair.AccessToken, "rahasia", TokenAccess)
	require.NoError(t, err)
	assert.Equal(t, claims, *got)

	_, err = ValidateToken(pair.RefreshToken, "rahasia", TokenAccess)
	assert.ErrorIs(t, err, ErrWrongTokenType, "refresh token tidak boleh dipakai sebagai access token")

	_, err = ValidateToken(pair.AccessToken, "salah", TokenAccess)
	assert.Error(t, err)
}

func TestExpiredToken(t *testing.T) {
	pair, err := GenerateTokenPair(model.JWTClaims{UserID: "x"}, "rahasia", -1, -1)
	require.NoError(t, err)

	_, err = ValidateToken(pair.AccessToken, "rahasia", TokenAccess)
	assert.Error(t, err)
}
