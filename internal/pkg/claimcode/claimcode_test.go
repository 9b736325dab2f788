//go:build unit

package claimcode_test

import (
	"strings"
	"testing"

	"bookstore/internal/pkg/claimcode"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	t.Run("produces fixed-length codes from the restricted alphabet", func(t *testing.T) {
		for range 100 {
			code, err := claimcode.Generate()
			require.NoError(t, err)
			assert.Len(t, code, claimcode.Length)
			for _, r := range code {
				assert.Contains(t, claimcode.Alphabet, string(r))
			}
		}
	})

	t.Run("never emits visually ambiguous characters", func(t *testing.T) {
		for range 200 {
			code, err := claimcode.Generate()
			require.NoError(t, err)
			assert.NotContains(t, code, "0")
			assert.NotContains(t, code, "O")
			assert.NotContains(t, code, "1")
			assert.NotContains(t, code, "I")
			assert.NotContains(t, code, "L")
		}
	})

	t.Run("codes are well dispersed", func(t *testing.T) {
		seen := make(map[string]struct{}, 1000)
		for range 1000 {
			code, err := claimcode.Generate()
			require.NoError(t, err)
			seen[code] = struct{}{}
		}
		// 31^8 possible codes; 1000 draws colliding would indicate broken randomness
		assert.Len(t, seen, 1000)
	})
}

func TestIsWellFormed(t *testing.T) {
	testCases := []struct {
		name string
		code string
		want bool
	}{
		{name: "valid generated shape", code: "A2B3C4D5", want: true},
		{name: "too short", code: "A2B3C4D", want: false},
		{name: "too long", code: "A2B3C4D5E", want: false},
		{name: "lowercase rejected", code: "a2b3c4d5", want: false},
		{name: "ambiguous character rejected", code: "A2B3C4D0", want: false},
		{name: "empty", code: "", want: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, claimcode.IsWellFormed(tc.code))
		})
	}
}

func TestAlphabetHasNoDuplicates(t *testing.T) {
	for i, r := range claimcode.Alphabet {
		assert.Equal(t, i, strings.IndexRune(claimcode.Alphabet, r))
	}
}
