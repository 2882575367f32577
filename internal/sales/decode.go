package sales

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"unicode/utf8"

	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/transform"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Encoding names reported by DecodeText.
const (
	EncodingUTF8  = "utf-8"
	EncodingCP949 = "cp949"
)

// DecodeText returns the content as UTF-8. Byte-order-marked or valid
// UTF-8 input is kept; anything else is decoded as cp949 (EUC-KR).
func DecodeText(raw []byte) ([]byte, string, error) {
	if bytes.HasPrefix(raw, utf8BOM) {
		return raw[len(utf8BOM):], EncodingUTF8, nil
	}
	if utf8.Valid(raw) {
		return raw, EncodingUTF8, nil
	}
	out, _, err := transform.Bytes(korean.EUCKR.NewDecoder(), raw)
	if err != nil {
		return nil, "", fmt.Errorf("decode cp949: %w", err)
	}
	return out, EncodingCP949, nil
}

// ReadCSV decodes r and parses it as comma-separated records. Rows may have
// varying field counts.
func ReadCSV(r io.Reader) ([][]string, string, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, "", fmt.Errorf("read csv: %w", err)
	}
	text, enc, err := DecodeText(raw)
	if err != nil {
		return nil, "", err
	}

	cr := csv.NewReader(bytes.NewReader(text))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, "", fmt.Errorf("parse csv: %w", err)
	}
	return rows, enc, nil
}
