package cache

import (
	"encoding/hex"
	"net/http"
	"net/textproto"
	"slices"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// Key derives the store key of req from its method, URL and the values of
// the vary headers. Header names are canonicalized and sorted.
func Key(req *http.Request, vary ...string) string {
	var b strings.Builder
	b.WriteString(req.Method)
	b.WriteByte('\n')
	b.WriteString(req.URL.String())

	names := make([]string, 0, len(vary))
	for _, v := range vary {
		names = append(names, textproto.CanonicalMIMEHeaderKey(v))
	}
	slices.Sort(names)
	for _, name := range slices.Compact(names) {
		b.WriteByte('\n')
		b.WriteString(name)
		b.WriteByte(':')
		b.WriteString(strings.Join(req.Header.Values(name), ","))
	}

	sum := blake2b.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
