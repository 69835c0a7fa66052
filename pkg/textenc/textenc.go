// Package textenc detects the declared text encoding of a Python source file
// (byte-order mark or PEP 263 coding cookie) and decodes it to UTF-8.
package textenc

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
)

// Codec names as reported by Detect.
const (
	UTF8    = "utf-8"
	UTF8Sig = "utf-8-sig"
	Latin1  = "iso-8859-1"
	ASCII   = "ascii"
)

// cookieLines is how many leading lines may carry a coding cookie.
const cookieLines = 2

// normalPrefixLen bounds how much of a declared name is normalised.
const normalPrefixLen = 12

var (
	// ErrEncoding is returned when a file's encoding cannot be determined or applied.
	ErrEncoding = errors.New("text encoding error")
	// ErrNullBytes is returned for sources containing NUL, which Python rejects.
	ErrNullBytes = fmt.Errorf("%w: source contains null bytes", ErrEncoding)

	cookieRe = regexp.MustCompile(`^[ \t\f]*#.*?coding[:=][ \t]*([-\w.]+)`)
	blankRe  = regexp.MustCompile(`^[ \t\f]*(?:[#\r\n]|$)`)

	utf8BOM = []byte{0xEF, 0xBB, 0xBF}

	// asciiProbe must decode to itself in any codec a cookie may name.
	asciiProbe = []byte("# -*- coding: x -*-\nfrom . import (a, b)\n")

	asciiAliases = []string{ASCII, "us-ascii", "646", "us", "iso646-us", "cp367", "ibm367"}
)

// Encoding is the detected scheme of one file.
type Encoding struct {
	// Name is the normalised codec name.
	Name string
	// BOM is set when the data starts with a UTF-8 byte-order mark.
	BOM bool
}

// Detect inspects the first two lines of data and reports the declared
// encoding, defaulting to UTF-8.
func Detect(data []byte) (Encoding, error) {
	bom := bytes.HasPrefix(data, utf8BOM)
	if bom {
		data = data[len(utf8BOM):]
	}

	def := Encoding{Name: UTF8}
	if bom {
		def.Name = UTF8Sig
		def.BOM = true
	}

	lines := headLines(data, cookieLines)

	for idx, line := range lines {
		name, found, err := findCookie(line)
		if err != nil {
			return Encoding{}, err
		}

		if found {
			return resolve(name, bom)
		}

		if idx == 0 && !blankRe.Match(line) {
			break
		}
	}

	return def, nil
}

// Decode converts data in the given encoding to a UTF-8 string.
func Decode(data []byte, enc Encoding) (string, error) {
	if enc.BOM {
		if !utf8.Valid(bytes.TrimPrefix(data, utf8BOM)) {
			return "", fmt.Errorf("%w: invalid %s data", ErrEncoding, UTF8Sig)
		}

		out, err := unicode.UTF8BOM.NewDecoder().Bytes(data)
		if err != nil {
			return "", fmt.Errorf("%w: %w", ErrEncoding, err)
		}

		return string(out), nil
	}

	if enc.Name == UTF8 || enc.Name == "" {
		if !utf8.Valid(data) {
			return "", fmt.Errorf("%w: invalid %s data", ErrEncoding, UTF8)
		}

		return string(data), nil
	}

	if enc.Name == ASCII {
		if i := bytes.IndexFunc(data, func(r rune) bool { return r >= utf8.RuneSelf }); i >= 0 {
			return "", fmt.Errorf("%w: byte 0x%02x at offset %d is not %s", ErrEncoding, data[i], i, ASCII)
		}

		return string(data), nil
	}

	codec, err := sourceCodec(enc.Name)
	if err != nil {
		return "", err
	}

	out, err := codec.NewDecoder().Bytes(data)
	if err != nil {
		return "", fmt.Errorf("%w: decode %s: %w", ErrEncoding, enc.Name, err)
	}

	// x/text decoders substitute U+FFFD for bytes they cannot map. Such output
	// is accepted only if it encodes back to the original bytes.
	if bytes.ContainsRune(out, utf8.RuneError) {
		back, encErr := codec.NewEncoder().Bytes(out)
		if encErr != nil || !bytes.Equal(back, data) {
			return "", fmt.Errorf("%w: undecodable bytes for %s", ErrEncoding, enc.Name)
		}
	}

	return string(out), nil
}

// ReadFile reads path, detects its encoding and returns the decoded text.
func ReadFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read source: %w", err)
	}

	enc, err := Detect(data)
	if err != nil {
		return "", err
	}

	text, err := Decode(data, enc)
	if err != nil {
		return "", err
	}

	if strings.IndexByte(text, 0) >= 0 {
		return "", ErrNullBytes
	}

	return text, nil
}

func headLines(data []byte, n int) [][]byte {
	lines := make([][]byte, 0, n)

	for len(lines) < n && len(data) > 0 {
		idx := bytes.IndexByte(data, '\n')
		if idx < 0 {
			lines = append(lines, data)

			break
		}

		lines = append(lines, data[:idx+1])
		data = data[idx+1:]
	}

	return lines
}

func findCookie(line []byte) (string, bool, error) {
	if !utf8.Valid(line) {
		return "", false, fmt.Errorf("%w: invalid or missing encoding declaration", ErrEncoding)
	}

	m := cookieRe.FindSubmatch(line)
	if m == nil {
		return "", false, nil
	}

	return string(m[1]), true, nil
}

func resolve(declared string, bom bool) (Encoding, error) {
	name := normalName(declared)

	if bom {
		if name != UTF8 {
			return Encoding{}, fmt.Errorf("%w: encoding problem: %s with BOM", ErrEncoding, declared)
		}

		return Encoding{Name: UTF8Sig, BOM: true}, nil
	}

	if name == UTF8 || name == ASCII {
		return Encoding{Name: name}, nil
	}

	if _, err := sourceCodec(name); err != nil {
		return Encoding{}, err
	}

	return Encoding{Name: name}, nil
}

// normalName folds the spellings Python treats as utf-8 and latin-1.
func normalName(orig string) string {
	enc := strings.ReplaceAll(strings.ToLower(truncate(orig, normalPrefixLen)), "_", "-")

	if enc == UTF8 || strings.HasPrefix(enc, UTF8+"-") {
		return UTF8
	}

	for _, alias := range []string{"latin-1", Latin1, "iso-latin-1"} {
		if enc == alias || strings.HasPrefix(enc, alias+"-") {
			return Latin1
		}
	}

	if slices.Contains(asciiAliases, enc) {
		return ASCII
	}

	return orig
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}

	return s[:n]
}

// sourceCodec returns the codec for name if it can carry Python source, which
// requires the ASCII range to decode unchanged (utf-16 and utf-32 cannot).
func sourceCodec(name string) (encoding.Encoding, error) {
	codec, err := lookup(name)
	if err != nil {
		return nil, err
	}

	out, err := codec.NewDecoder().Bytes(asciiProbe)
	if err != nil || !bytes.Equal(out, asciiProbe) {
		return nil, fmt.Errorf("%w: encoding problem: %s is not ASCII-compatible", ErrEncoding, name)
	}

	return codec, nil
}

func lookup(name string) (encoding.Encoding, error) {
	candidates := []string{name, strings.ReplaceAll(name, "_", "-")}

	for _, candidate := range candidates {
		codec, err := ianaindex.IANA.Encoding(candidate)
		if err == nil && codec != nil {
			return codec, nil
		}

		codec, err = htmlindex.Get(candidate)
		if err == nil && codec != nil {
			return codec, nil
		}
	}

	return nil, fmt.Errorf("%w: unknown encoding: %s", ErrEncoding, name)
}
