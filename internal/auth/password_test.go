package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasher_HashAndVerify(t *testing.T) {
	hasher := NewBcryptHasher(bcrypt.MinCost)

	first, err := hasher.Hash("pw1")
	require.NoError(t, err)
	second, err := hasher.Hash("pw1")
	require.NoError(t, err)

	assert.NotEqual(t, first, second, "digests embed a random salt")
	assert.NotEqual(t, "pw1", first)
	assert.True(t, hasher.Verify("pw1", first))
	assert.True(t, hasher.Verify("pw1", second))
	assert.False(t, hasher.Verify("pw2", first))
}

func TestBcryptHasher_VerifyPairs(t *testing.T) {
	hasher := NewBcryptHasher(bcrypt.MinCost)
	pairs := [][2]string{
		{"correct horse", "battery staple"},
		{"a", "b"},
		{"password", "Password"},
		{"ünïcødé", "unicode"},
	}

	for _, p := range pairs {
		digest, err := hasher.Hash(p[0])
		require.NoError(t, err)
		assert.True(t, hasher.Verify(p[0], digest), "verify(%q, hash(%q))", p[0], p[0])
		assert.False(t, hasher.Verify(p[1], digest), "verify(%q, hash(%q))", p[1], p[0])
	}
}

func TestBcryptHasher_MalformedDigestNeverMatches(t *testing.T) {
	hasher := NewBcryptHasher(bcrypt.MinCost)
	assert.False(t, hasher.Verify("pw", "not-a-bcrypt-digest"))
	assert.False(t, hasher.Verify("", ""))
}

func TestBcryptHasher_Cost(t *testing.T) {
	tests := []struct {
		name string
		in   int
		want int
	}{
		{name: "zero uses default", in: 0, want: DefaultBcryptCost},
		{name: "below min clamps", in: 1, want: bcrypt.MinCost},
		{name: "above max clamps", in: 99, want: bcrypt.MaxCost},
		{name: "valid kept", in: 12, want: 12},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NewBcryptHasher(tt.in).cost)
		})
	}

	digest, err := NewBcryptHasher(0).Hash("pw")
	require.NoError(t, err)
	cost, err := bcrypt.Cost([]byte(digest))
	require.NoError(t, err)
	assert.Equal(t, 10, cost)
}

func TestBcryptHasher_PasswordTooLong(t *testing.T) {
	long := make([]byte, 73)
	for i := range long {
		long[i] = 'a'
	}
	_, err := NewBcryptHasher(bcrypt.MinCost).Hash(string(long))
	assert.ErrorIs(t, err, bcrypt.ErrPasswordTooLong)
}
