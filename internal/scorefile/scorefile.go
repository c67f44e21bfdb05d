package scorefile

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/nxaudio/mmlplayer/internal/sequencer"
)

var ErrUnknownEncoding = errors.New("scorefile: unknown encoding")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Encodings lists the names Decode accepts.
var Encodings = []string{"auto", "utf-8", "shift_jis", "latin1", "macroman"}

func lookup(name string) (encoding.Encoding, error) {
	switch strings.ToLower(strings.ReplaceAll(name, "-", "_")) {
	case "utf_8", "utf8":
		return unicode.UTF8BOM, nil
	case "shift_jis", "sjis", "cp932":
		return japanese.ShiftJIS, nil
	case "latin1", "iso_8859_1":
		return charmap.ISO8859_1, nil
	case "macroman", "mac":
		return charmap.Macintosh, nil
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownEncoding, name)
}

// Decode converts score bytes to text. "auto" picks UTF-8 when the data is
// valid UTF-8 and Shift-JIS otherwise.
func Decode(data []byte, enc string) (string, error) {
	if enc == "" || strings.EqualFold(enc, "auto") {
		enc = "shift_jis"
		if bytes.HasPrefix(data, utf8BOM) || utf8.Valid(data) {
			enc = "utf-8"
		}
	}
	e, err := lookup(enc)
	if err != nil {
		return "", err
	}
	out, _, err := transform.Bytes(e.NewDecoder(), data)
	if err != nil {
		return "", fmt.Errorf("scorefile: decoding %s: %w", enc, err)
	}
	return string(out), nil
}

// Split separates a score into parts. Parts are delimited by ';', "//"
// starts a comment running to the end of the line, and a part may begin
// with a "Name:" label. Unlabelled parts are named P1, P2, ... by position.
func Split(text string) []sequencer.Part {
	var clean strings.Builder
	for _, line := range strings.Split(text, "\n") {
		if i := strings.Index(line, "//"); i >= 0 {
			line = line[:i]
		}
		clean.WriteString(line)
		clean.WriteByte('\n')
	}

	var parts []sequencer.Part
	for _, chunk := range strings.Split(clean.String(), ";") {
		chunk = strings.TrimSpace(chunk)
		if chunk == "" {
			continue
		}
		name, score := label(chunk)
		if name == "" {
			name = "P" + strconv.Itoa(len(parts)+1)
		}
		parts = append(parts, sequencer.Part{Name: name, Score: strings.TrimSpace(score)})
	}
	return parts
}

func label(chunk string) (name, rest string) {
	i := strings.IndexByte(chunk, ':')
	if i <= 0 {
		return "", chunk
	}
	for _, r := range chunk[:i] {
		if r != '_' && !('A' <= r && r <= 'Z') && !('a' <= r && r <= 'z') && !('0' <= r && r <= '9') {
			return "", chunk
		}
	}
	return chunk[:i], chunk[i+1:]
}

// Load reads, decodes and splits a score file.
func Load(path, enc string) ([]sequencer.Part, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	text, err := Decode(data, enc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return Split(text), nil
}
