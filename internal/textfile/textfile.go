// Package textfile reads legacy text exports whose encoding is not declared.
package textfile

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// ErrUndecodable is returned when no candidate encoding yields clean text.
var ErrUndecodable = errors.New("file could not be decoded with any supported encoding")

const (
	EncodingUTF8        = "utf-8"
	EncodingWindows1252 = "windows-1252"
	EncodingLatin1      = "iso-8859-1"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

type candidate struct {
	name string
	enc  encoding.Encoding
}

// fallbacks are tried in order once UTF-8 has been ruled out.
var fallbacks = []candidate{
	{EncodingWindows1252, charmap.Windows1252},
	{EncodingLatin1, charmap.ISO8859_1},
}

// Decode returns the text and the name of the encoding that produced it.
// A decoding is rejected when it contains replacement or NUL characters.
//
// The single-byte fallbacks are only tried for input that is not valid
// UTF-8. Valid UTF-8 that is not clean is ErrUndecodable: a NUL survives
// every fallback unchanged, and re-reading an encoded U+FFFD as
// windows-1252 would only turn it into "ï¿½".
func Decode(data []byte) (string, string, error) {
	if utf8.Valid(data) {
		text := string(bytes.TrimPrefix(data, utf8BOM))
		if clean(text) {
			return text, EncodingUTF8, nil
		}
		return "", "", ErrUndecodable
	}

	for _, c := range fallbacks {
		out, err := c.enc.NewDecoder().Bytes(data)
		if err != nil {
			continue
		}
		if text := string(out); clean(text) {
			return text, c.name, nil
		}
	}
	return "", "", ErrUndecodable
}

func clean(text string) bool {
	return !strings.ContainsRune(text, utf8.RuneError) && !strings.ContainsRune(text, 0)
}

// ReadFile reads and decodes a whole file.
func ReadFile(path string) (string, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	text, enc, err := Decode(data)
	if err != nil {
		return "", "", fmt.Errorf("%s: %w", path, err)
	}
	return text, enc, nil
}

// WriteFile writes UTF-8 text, creating parent directories.
func WriteFile(path, content string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
