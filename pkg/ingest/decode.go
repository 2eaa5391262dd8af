package ingest

import (
	"bufio"
	"bytes"
	"io"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"riego/pkg/errors"
)

const (
	EncodingUTF8   = "utf-8"
	EncodingLatin1 = "windows-1252"

	// DefaultPeekSize bounds how much of the upload is inspected to pick the encoding.
	DefaultPeekSize = 64 * 1024
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// decode inspects up to peek bytes of r and returns a UTF-8 reader over the
// whole stream plus the encoding that was chosen. A prefix that is valid
// UTF-8 with no U+FFFD is read as UTF-8; anything else as Windows-1252.
// The BOM, if any, is dropped.
func decode(r io.Reader, peek int) (io.Reader, string, error) {
	if peek <= 0 {
		peek = DefaultPeekSize
	}
	br := bufio.NewReaderSize(r, peek)
	prefix, err := br.Peek(peek)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, "", err
	}
	truncated := len(prefix) == peek

	if bytes.HasPrefix(prefix, utf8BOM) {
		if _, err := br.Discard(len(utf8BOM)); err != nil {
			return nil, "", err
		}
		return br, EncodingUTF8, nil
	}
	if looksUTF8(prefix, truncated) {
		return br, EncodingUTF8, nil
	}
	return transform.NewReader(br, charmap.Windows1252.NewDecoder()), EncodingLatin1, nil
}

// looksUTF8 reports whether b is clean UTF-8. When b was cut at the peek
// limit an incomplete trailing rune is ignored.
func looksUTF8(b []byte, truncated bool) bool {
	if truncated {
		for i := 1; i <= utf8.UTFMax && i <= len(b); i++ {
			if utf8.RuneStart(b[len(b)-i]) {
				if !utf8.FullRune(b[len(b)-i:]) {
					b = b[:len(b)-i]
				}
				break
			}
		}
	}
	return utf8.Valid(b) && !bytes.ContainsRune(b, utf8.RuneError)
}
