package common

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewVerificationCode(t *testing.T) {
	seen := make(map[string]bool)

	for i := 0; i < 1000; i++ {
		code := NewVerificationCode()

		assert.Len(t, code, VerificationCodeLength)
		for _, c := range code {
			assert.True(t, strings.ContainsRune(codeAlphabet, c), "unexpected character %q in %s", c, code)
		}

		seen[code] = true
	}

	// 36^8 codes, 1000 draws: a collision here means the generator is broken.
	assert.Len(t, seen, 1000)
}

func TestNewQrPayload(t *testing.T) {
	payload := NewQrPayload()

	assert.True(t, strings.HasPrefix(payload, "TKT-"))
	assert.Len(t, payload, 24)

	assert.NotEqual(t, payload, NewQrPayload())
}
