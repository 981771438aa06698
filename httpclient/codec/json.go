package codec

import (
	"bytes"

	json "github.com/goccy/go-json"

	"github.com/kbukum/anyhttp/httpclient"
)

// JSON encodes and decodes application/json bodies.
var JSON Codec = jsonCodec{}

type jsonCodec struct{}

func (jsonCodec) ContentType() string { return MediaJSON }

func (jsonCodec) Encode(v any) ([]byte, string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, "", httpclient.NewCodecError("encode json", err)
	}
	return data, MediaJSON, nil
}

func (jsonCodec) Decode(data []byte, _ string, v any) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return httpclient.NewCodecError("decode json: empty body", nil)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return httpclient.NewCodecError("decode json", err)
	}
	return nil
}
