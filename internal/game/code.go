package game

import "crypto/rand"

// codeAlphabet avoids glyphs that read ambiguously on a shared screen.
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const CodeLength = 6

// NewJoinCode returns a 6-character uppercase alphanumeric room code.
// Uniqueness is enforced at the store; callers regenerate on collision.
func NewJoinCode() (string, error) {
	buf := make([]byte, CodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i := range buf {
		buf[i] = codeAlphabet[int(buf[i])%len(codeAlphabet)]
	}
	return string(buf), nil
}
