package codec

import (
	"encoding/base64"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/kbukum/anyhttp/httpclient"
)

// Text passes UTF-8 text through unchanged. It encodes string and []byte
// and decodes into *string or *[]byte.
var Text Codec = textCodec{}

type textCodec struct{}

func (textCodec) ContentType() string { return MediaText }

func (textCodec) Encode(v any) ([]byte, string, error) {
	var data []byte
	switch t := v.(type) {
	case string:
		data = []byte(t)
	case []byte:
		data = t
	case fmt.Stringer:
		data = []byte(t.String())
	default:
		return nil, "", httpclient.NewCodecError(fmt.Sprintf("encode text: unsupported type %T", v), nil)
	}
	if !utf8.Valid(data) {
		return nil, "", httpclient.NewCodecError("encode text: invalid UTF-8", nil)
	}
	return data, MediaText, nil
}

func (textCodec) Decode(data []byte, _ string, v any) error {
	if !utf8.Valid(data) {
		return httpclient.NewCodecError("decode text: invalid UTF-8", nil)
	}
	switch t := v.(type) {
	case *string:
		*t = string(data)
	case *[]byte:
		*t = append([]byte(nil), data...)
	default:
		return httpclient.NewCodecError(fmt.Sprintf("decode text: unsupported target %T", v), nil)
	}
	return nil
}

// Base64 carries arbitrary bytes as standard base64 text. It encodes string
// and []byte and decodes into *[]byte or *string.
var Base64 Codec = base64Codec{}

type base64Codec struct{}

func (base64Codec) ContentType() string { return MediaBase64 }

func (base64Codec) Encode(v any) ([]byte, string, error) {
	var raw []byte
	switch t := v.(type) {
	case []byte:
		raw = t
	case string:
		raw = []byte(t)
	default:
		return nil, "", httpclient.NewCodecError(fmt.Sprintf("encode base64: unsupported type %T", v), nil)
	}
	return []byte(EncodeBase64(raw)), MediaBase64, nil
}

func (base64Codec) Decode(data []byte, _ string, v any) error {
	raw, err := DecodeBase64(string(data))
	if err != nil {
		return err
	}
	switch t := v.(type) {
	case *[]byte:
		*t = raw
	case *string:
		*t = string(raw)
	default:
		return httpclient.NewCodecError(fmt.Sprintf("decode base64: unsupported target %T", v), nil)
	}
	return nil
}

// EncodeBase64 returns the standard padded base64 text of data.
func EncodeBase64(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// DecodeBase64 parses standard base64, ignoring surrounding whitespace and
// line breaks.
func DecodeBase64(s string) ([]byte, error) {
	s = strings.Join(strings.Fields(s), "")
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, httpclient.NewCodecError("decode base64", err)
	}
	return raw, nil
}
