// Package tokencodec makes opaque token bytes safe to carry in a URL query
// component. It is a transport encoding, not a security control.
package tokencodec

import (
	"encoding/base64"
	"strings"

	"github.com/dmitrijs2005/gophauth/internal/common"
)

// Unpadded URL alphabet; Strict rejects non-zero trailing bits so every
// byte sequence has exactly one encoding.
var enc = base64.RawURLEncoding.Strict()

// Encode returns the URL-safe text form of raw.
func Encode(raw []byte) string {
	return enc.EncodeToString(raw)
}

// Decode reverses Encode. Anything that Encode could not have produced
// yields common.ErrMalformedToken.
func Decode(s string) ([]byte, error) {
	// the decoder silently skips CR/LF
	if strings.ContainsAny(s, "\r\n") {
		return nil, common.ErrMalformedToken
	}
	b, err := enc.DecodeString(s)
	if err != nil {
		return nil, common.ErrMalformedToken
	}
	return b, nil
}
