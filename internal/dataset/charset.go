package dataset

import (
	"bytes"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/htmlindex"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ReadFile reads path and converts it from charset to UTF-8.
func ReadFile(path, charset string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "dataset: read %s", path)
	}
	return Decode(data, charset)
}

// Decode converts data from the named charset (any WHATWG label such as
// "windows-1252" or "latin1") to UTF-8. An empty name means UTF-8. A leading
// UTF-8 byte order mark is dropped.
func Decode(data []byte, charset string) ([]byte, error) {
	label := strings.ToLower(strings.TrimSpace(charset))
	if label == "" || label == "utf-8" || label == "utf8" {
		return bytes.TrimPrefix(data, utf8BOM), nil
	}

	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, eris.Wrapf(err, "dataset: unknown charset %q", charset)
	}
	out, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return nil, eris.Wrapf(err, "dataset: decode %s", charset)
	}
	return bytes.TrimPrefix(out, utf8BOM), nil
}
