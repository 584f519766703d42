package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidUsername(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"alice", true},
		{"Alice.O'Neil", true},
		{"a_b-c@d", true},
		{"", false},
		{"has space", false},
		{"slash/name", false},
		{"ümlaut", false},
		{strings.Repeat("a", UsernameMaxLength), true},
		{strings.Repeat("a", UsernameMaxLength+1), false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ValidUsername(tt.in), tt.in)
	}
}

func TestNormalizeUsername(t *testing.T) {
	assert.Equal(t, "alice", NormalizeUsername(" Alice "))
	assert.Equal(t, "bob@x", NormalizeUsername("BOB@X"))
}

func TestHasAuthority(t *testing.T) {
	assert.True(t, HasAuthority([]string{AuthorityUser, AuthorityAdmin}, AuthorityAdmin))
	assert.False(t, HasAuthority([]string{AuthorityUser}, AuthorityAdmin))
	assert.False(t, HasAuthority(nil, AuthorityUser))
}
