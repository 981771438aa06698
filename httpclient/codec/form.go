package codec

import (
	"net/url"
	"sync"

	"github.com/go-playground/form/v4"

	"github.com/kbukum/anyhttp/httpclient"
)

// Form encodes and decodes application/x-www-form-urlencoded bodies.
// Structs map through `form` tags; url.Values and map[string]string are
// handled directly.
var Form Codec = &formCodec{}

type formCodec struct {
	once sync.Once
	enc  *form.Encoder
	dec  *form.Decoder
}

func (c *formCodec) init() {
	c.once.Do(func() {
		c.enc = form.NewEncoder()
		c.dec = form.NewDecoder()
	})
}

func (c *formCodec) ContentType() string { return MediaForm }

func (c *formCodec) Encode(v any) ([]byte, string, error) {
	var values url.Values
	switch t := v.(type) {
	case url.Values:
		values = t
	case map[string]string:
		values = make(url.Values, len(t))
		for k, val := range t {
			values.Set(k, val)
		}
	case map[string][]string:
		values = url.Values(t)
	default:
		c.init()
		var err error
		values, err = c.enc.Encode(v)
		if err != nil {
			return nil, "", httpclient.NewCodecError("encode form", err)
		}
	}
	return []byte(values.Encode()), MediaForm, nil
}

func (c *formCodec) Decode(data []byte, _ string, v any) error {
	values, err := url.ParseQuery(string(data))
	if err != nil {
		return httpclient.NewCodecError("decode form", err)
	}
	switch t := v.(type) {
	case *url.Values:
		*t = values
		return nil
	case *map[string]string:
		m := make(map[string]string, len(values))
		for k := range values {
			m[k] = values.Get(k)
		}
		*t = m
		return nil
	case *map[string][]string:
		*t = map[string][]string(values)
		return nil
	}
	c.init()
	if err := c.dec.Decode(v, values); err != nil {
		return httpclient.NewCodecError("decode form", err)
	}
	return nil
}
