package utils

import (
	"bytes"
	"unicode/utf8"

	"golang.org/x/text/transform"

	"github.com/mogaika/gms_browser/config"
)

// Decodes raw dump bytes to a string using the configured charmap.
// Valid UTF-8 input passes through untouched, old exporters wrote
// single-byte encodings that need remapping.
func BytesToString(bs []byte) string {
	if n := bytes.IndexByte(bs, 0); n >= 0 {
		bs = bs[:n]
	}

	if utf8.Valid(bs) {
		return string(bs)
	}

	s, _, err := transform.Bytes(config.GetEncoding().NewDecoder(), bs)
	if err != nil {
		panic(err)
	}

	return string(s)
}
