package dispensingparser

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

var errUndefinedByte = errors.New("byte has no mapping in this charset")

// Encoding is a named decoder tried by the reader. Decode must fail when the
// bytes are not valid in the charset so the next candidate gets a chance.
type Encoding struct {
	Name   string
	Decode func([]byte) (string, error)
}

var (
	UTF8 = Encoding{Name: "utf-8", Decode: decodeUTF8}

	// Windows1252 rejects the five positions the code page leaves undefined.
	Windows1252 = Encoding{Name: "windows-1252", Decode: decodeCharmap(charmap.Windows1252, true)}

	// Latin1 maps every byte, so it always succeeds and belongs last.
	Latin1 = Encoding{Name: "iso-8859-1", Decode: decodeCharmap(charmap.ISO8859_1, false)}
)

// DefaultEncodings returns the fallback order used when none is configured.
func DefaultEncodings() []Encoding {
	return []Encoding{UTF8, Windows1252, Latin1}
}

// EncodingByName resolves the usual spellings of the supported charsets.
func EncodingByName(name string) (Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "utf-8", "utf8", "utf-8-sig", "utf_8":
		return UTF8, nil
	case "windows-1252", "cp1252", "win1252":
		return Windows1252, nil
	case "iso-8859-1", "latin1", "latin-1", "iso8859-1":
		return Latin1, nil
	}
	return Encoding{}, fmt.Errorf("unsupported encoding %q", name)
}

// ParseEncodings turns a comma separated list into an ordered fallback list.
func ParseEncodings(list string) ([]Encoding, error) {
	var encodings []Encoding
	for _, name := range strings.Split(list, ",") {
		if strings.TrimSpace(name) == "" {
			continue
		}
		enc, err := EncodingByName(name)
		if err != nil {
			return nil, err
		}
		encodings = append(encodings, enc)
	}
	if len(encodings) == 0 {
		return nil, fmt.Errorf("no encodings in %q", list)
	}
	return encodings, nil
}

func decodeUTF8(b []byte) (string, error) {
	b = bytes.TrimPrefix(b, utf8BOM)
	if !utf8.Valid(b) {
		return "", errors.New("invalid utf-8 sequence")
	}
	return string(b), nil
}

func decodeCharmap(cm *charmap.Charmap, strict bool) func([]byte) (string, error) {
	return func(b []byte) (string, error) {
		out, err := cm.NewDecoder().Bytes(b)
		if err != nil {
			return "", err
		}
		if strict {
			for _, r := range string(out) {
				if r == utf8.RuneError || (r >= 0x80 && r <= 0x9F) {
					return "", errUndefinedByte
				}
			}
		}
		return string(out), nil
	}
}
