package markov

import (
	"fmt"
	"strings"
	"unicode"
)

const (
	// StartToken marks the beginning of a poem in the corpus stream.
	StartToken = "<START>"
	// EndToken marks the end of a poem in the corpus stream.
	EndToken = "<END>"
)

// keySeparator joins the tokens of an NGram into a table key. Tokens never
// contain whitespace, so the encoding is unambiguous.
const keySeparator = " "

// NGram is an ordered window of exactly k consecutive tokens. An order-1
// NGram is still a slice of length one.
type NGram []string

// Key returns the string form of the NGram used to index a Table.
func (n NGram) Key() string {
	return strings.Join(n, keySeparator)
}

// String implements fmt.Stringer.
func (n NGram) String() string {
	return "(" + strings.Join(n, ", ") + ")"
}

// parseKey is the inverse of NGram.Key.
func parseKey(key string) NGram {
	return strings.Split(key, keySeparator)
}

// IsSentinel reports whether tok is StartToken or EndToken.
func IsSentinel(tok string) bool {
	return tok == StartToken || tok == EndToken
}

// validateToken rejects tokens that could not survive a round trip through
// whitespace tokenization.
func validateToken(tok string) error {
	if tok == "" {
		return fmt.Errorf("%w: empty token", ErrInvalidToken)
	}
	if strings.IndexFunc(tok, unicode.IsSpace) >= 0 {
		return fmt.Errorf("%w: %q contains whitespace", ErrInvalidToken, tok)
	}
	return nil
}
