package security_test

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/vendorops-backend/pkg/config"
	"github.com/angelmondragon/vendorops-backend/pkg/security"
)

func testHasher() *security.CodeHasher {
	return security.NewCodeHasher(config.HashingConfig{
		ArgonMemoryKB:    64,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     16,
		ArgonKeyLen:      32,
	})
}

func TestHashAndVerifyCode(t *testing.T) {
	h := testHasher()

	hash, err := h.Hash("042913")
	require.NoError(t, err)
	assert.NotContains(t, hash, "042913")

	ok, err := h.Verify("042913", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Verify("042914", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHashIsSalted(t *testing.T) {
	h := testHasher()
	a, err := h.Hash("1234")
	require.NoError(t, err)
	b, err := h.Hash("1234")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestVerifyRejectsMalformedHash(t *testing.T) {
	h := testHasher()
	for _, encoded := range []string{"not-a-hash", "$argon2id$v=19$m=x,t=1,p=1$abc$def", "$bcrypt$v=19$m=1,t=1,p=1$abc$def"} {
		_, err := h.Verify("1234", encoded)
		assert.ErrorIs(t, err, security.ErrInvalidHash, encoded)
	}
}

func TestHashRejectsEmptyCode(t *testing.T) {
	_, err := testHasher().Hash("")
	require.Error(t, err)
}

func TestGenerateNumericCodeIsFixedWidth(t *testing.T) {
	pattern := regexp.MustCompile(`^\d{6}$`)
	for i := 0; i < 200; i++ {
		code, err := security.GenerateNumericCode(6)
		require.NoError(t, err)
		require.Regexp(t, pattern, code)
	}

	_, err := security.GenerateNumericCode(0)
	require.Error(t, err)
}
