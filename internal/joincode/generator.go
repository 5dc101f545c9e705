// Package joincode provides the join-code generator, the verification
// result type, and the Redis-backed verification cache. The lifecycle
// service that ties them to stores lives in the service subpackage.
package joincode

import (
	"crypto/rand"

	dErrors "homeroom/pkg/domain-errors"
)

// codeAlphabet excludes visually ambiguous characters (I, O, 0, 1).
// Codes are read aloud in classrooms and typed from whiteboards; a code
// that can be mistranscribed is a support ticket.
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// CodeLength is the fixed length of every generated code.
const CodeLength = 8

// Generator produces join codes. Implementations must be safe for
// concurrent use.
type Generator interface {
	Generate() (string, error)
}

// CryptoGenerator draws codes from crypto/rand. Codes are bearer
// credentials; a predictable source would let an outsider enumerate
// active codes.
type CryptoGenerator struct{}

func NewGenerator() CryptoGenerator {
	return CryptoGenerator{}
}

// Generate returns a random 8-character code over the fixed alphabet.
// Uniqueness is not guaranteed here; callers claim the code with an
// insert-if-absent write and regenerate on collision.
func (CryptoGenerator) Generate() (string, error) {
	buf := make([]byte, CodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "could not generate join code")
	}
	out := make([]byte, CodeLength)
	for i, b := range buf {
		// The alphabet has 32 characters, so the modulo is bias-free.
		out[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(out), nil
}
