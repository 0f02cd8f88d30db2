package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePurpose(t *testing.T) {
	p, err := ParsePurpose("password_reset")
	require.NoError(t, err)
	assert.Equal(t, PurposePasswordReset, p)

	_, err = ParsePurpose("login")
	require.Error(t, err)
}

func TestOneTimeToken_State(t *testing.T) {
	now := time.Now()
	tok := &OneTimeToken{ExpiresAt: now.Add(time.Minute)}

	assert.False(t, tok.Consumed())
	assert.False(t, tok.Expired(now))
	assert.True(t, tok.Expired(now.Add(time.Minute)))

	tok.ConsumedAt = &now
	assert.True(t, tok.Consumed())
}

func TestRefreshToken_Usable(t *testing.T) {
	now := time.Now()
	next := "successor"

	cases := []struct {
		name string
		tok  RefreshToken
		want bool
	}{
		{"live", RefreshToken{ExpiresAt: now.Add(time.Hour)}, true},
		{"expired", RefreshToken{ExpiresAt: now}, false},
		{"revoked", RefreshToken{ExpiresAt: now.Add(time.Hour), Revoked: true}, false},
		{"rotated", RefreshToken{ExpiresAt: now.Add(time.Hour), ReplacedBy: &next}, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.tok.Usable(now), tc.name)
	}
}

func TestNewProfile_NilRoles(t *testing.T) {
	p := NewProfile(&User{ID: "u1", Email: "a@x.com"}, nil)
	assert.NotNil(t, p.Roles)
	assert.Equal(t, "a@x.com", p.Email)
}
