package common

import (
	"crypto/rand"
	"fmt"
)

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// VerificationCodeLength is the size of the human-typed code customers use
// on the unauthenticated portal.
const VerificationCodeLength = 8

// NewVerificationCode returns an 8-character uppercase alphanumeric code
// drawn from crypto/rand. Codes gate access to purchases at the door, so a
// guessable source is not acceptable here.
func NewVerificationCode() string {
	buf := make([]byte, VerificationCodeLength)
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Sprintf("crypto/rand unavailable: %v", err))
	}

	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}

	return string(buf)
}

// NewQrPayload returns the opaque token embedded in a ticket's QR code. It
// is an alternate lookup key, independent from the verification code.
func NewQrPayload() string {
	buf := make([]byte, 20)
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Sprintf("crypto/rand unavailable: %v", err))
	}

	out := make([]byte, len(buf))
	for i, b := range buf {
		out[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}

	return "TKT-" + string(out)
}
