package utils_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/landport/freight-api/internal/utils"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := utils.HashPassword("s3cret-密码", bcrypt.MinCost)
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret-密码", hash)

	assert.True(t, utils.VerifyPassword(hash, "s3cret-密码"))
	assert.False(t, utils.VerifyPassword(hash, "wrong"))
	assert.False(t, utils.VerifyPassword("", "s3cret-密码"))
}
