package suspend

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/kbukum/anyhttp/httpclient"
)

// slotBody streams a net/http body. Read failures surface as transport
// errors, and the connection slot and exchange context are released once
// the body is drained or closed.
type slotBody struct {
	rc      io.ReadCloser
	ctx     context.Context
	release func()
	once    sync.Once
}

func (b *slotBody) Read(p []byte) (int, error) {
	n, err := b.rc.Read(p)
	switch {
	case err == nil:
	case errors.Is(err, io.EOF):
		b.done()
	default:
		err = translateError(b.ctx, err)
	}
	return n, err
}

func (b *slotBody) Close() error {
	err := b.rc.Close()
	b.done()
	return err
}

func (b *slotBody) done() {
	b.once.Do(b.release)
}

var _ io.ReadCloser = (*slotBody)(nil)

// asError narrows err to the taxonomy type.
func asError(err error) (*httpclient.Error, bool) {
	var he *httpclient.Error
	ok := errors.As(err, &he)
	return he, ok
}
