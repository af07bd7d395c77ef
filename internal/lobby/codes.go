// internal/lobby/codes.go
package lobby

import (
	"crypto/rand"
	"os"
	"strconv"
	"strings"
)

// codeAlphabet excludes characters students confuse when typing a code off a
// projector: 0/O, 1/I/L.
const codeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

const defaultCodeLength = 6

// maxCodeAttempts bounds collision retries before Create gives up with
// ErrCodeSpaceExhausted.
const maxCodeAttempts = 10

// codeLength reads LOBBY_CODE_LENGTH or falls back to the default.
func codeLength() int {
	if s := os.Getenv("LOBBY_CODE_LENGTH"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n >= 4 && n <= 12 {
			return n
		}
	}
	return defaultCodeLength
}

// newCode generates one candidate join code. Uniqueness among live lobbies is
// the store's job, not this function's.
func newCode(length int) string {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		panic("lobby: crypto/rand unavailable: " + err.Error())
	}
	var b strings.Builder
	b.Grow(length)
	for _, c := range buf {
		b.WriteByte(codeAlphabet[int(c)%len(codeAlphabet)])
	}
	return b.String()
}

// NormalizeCode canonicalizes user input: codes are case-insensitive and
// surrounding whitespace is ignored.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
