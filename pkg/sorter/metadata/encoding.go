package metadata

import (
	"bytes"
	"io"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// decodeToUTF8 handles metadata-ingestion encoding: most masterlists and
// userlists are plain UTF-8, but a minority of community-authored files are
// saved in whatever encoding the curator's editor defaulted to. Valid UTF-8
// passes through unchanged apart from a leading BOM, which is stripped; anything else is
// assumed to be Windows-1252, the encoding legacy Windows text editors
// default to, and is transcoded before being handed to the YAML parser. A
// file that fails even that decode is returned unchanged so the YAML parser
// can produce its own error.
func decodeToUTF8(data []byte) []byte {
	if stripped, ok := stripUTF8BOM(data); ok {
		return stripped
	}
	if utf8.Valid(data) {
		return data
	}
	decoded, err := decodeWith(charmap.Windows1252, data)
	if err != nil {
		return data
	}
	return decoded
}

func stripUTF8BOM(data []byte) ([]byte, bool) {
	bom := []byte{0xEF, 0xBB, 0xBF}
	if bytes.HasPrefix(data, bom) {
		return data[len(bom):], true
	}
	if utf8.Valid(data) {
		return data, true
	}
	return nil, false
}

func decodeWith(enc encoding.Encoding, data []byte) ([]byte, error) {
	reader := transform.NewReader(bytes.NewReader(data), enc.NewDecoder())
	return io.ReadAll(reader)
}

// detectUTF16 reports whether data carries an explicit UTF-16 BOM; kept
// available for callers (e.g. a future stream-based Load variant) that
// read from os.Open rather than os.ReadFile.
func detectUTF16(data []byte) (encoding.Encoding, bool) {
	switch {
	case bytes.HasPrefix(data, []byte{0xFF, 0xFE}):
		return unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM), true
	case bytes.HasPrefix(data, []byte{0xFE, 0xFF}):
		return unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM), true
	default:
		return nil, false
	}
}
