package ingestion

import (
	"bytes"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/unicode"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// textEncoding is one candidate tried when decoding a text report
type textEncoding struct {
	Name   string
	decode func(data []byte) (string, bool)
}

// textEncodings lists the candidates in the order they are tried
var textEncodings = []textEncoding{
	{Name: "utf-8", decode: decodeUTF8},
	{Name: "utf-16", decode: decodeUTF16},
	{Name: "gbk", decode: decoderFor(simplifiedchinese.GBK)},
	{Name: "gb18030", decode: decoderFor(simplifiedchinese.GB18030)},
}

// DecodeText decodes data with the first candidate encoding that succeeds.
// It returns the text and the name of the encoding used.
func DecodeText(data []byte) (string, string, bool) {
	for _, enc := range textEncodings {
		if text, ok := enc.decode(data); ok {
			return text, enc.Name, true
		}
	}
	return "", "", false
}

func decodeUTF8(data []byte) (string, bool) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		return "", false
	}
	return string(data), true
}

// decodeUTF16 only accepts input that starts with a byte order mark
func decodeUTF16(data []byte) (string, bool) {
	if len(data) < 2 {
		return "", false
	}
	hasBOM := (data[0] == 0xFF && data[1] == 0xFE) || (data[0] == 0xFE && data[1] == 0xFF)
	if !hasBOM {
		return "", false
	}
	return decoderFor(unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM))(data)
}

// decoderFor adapts an x/text encoding into a strict candidate: any
// replacement character in the output counts as a failed decode.
func decoderFor(enc encoding.Encoding) func([]byte) (string, bool) {
	return func(data []byte) (string, bool) {
		out, err := enc.NewDecoder().Bytes(data)
		if err != nil {
			return "", false
		}
		if !utf8.Valid(out) || bytes.ContainsRune(out, utf8.RuneError) {
			return "", false
		}
		return string(out), true
	}
}
