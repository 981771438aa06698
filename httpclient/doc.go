// Package httpclient defines a backend-neutral HTTP request/response model
// and the two capabilities every backend implements.
//
//   - Executor: blocking. Execute runs on the caller's goroutine.
//   - AsyncExecutor: suspending. Start returns a *Call that resolves when the
//     response headers arrive and can be cancelled before that.
//
// Client and AsyncClient wrap a backend with the feature pipeline: cookie
// jar, default headers, authentication, request ids, rate limiting, taps and
// observers. The pipeline behaves the same whichever backend is underneath.
//
// Backends live in subpackages and register themselves when imported:
//
//	import _ "github.com/kbukum/anyhttp/httpclient/backend/blocking"
//
//	exec := backend.MustOpenSync("fasthttp", nil)
//	client := httpclient.NewClient(exec, httpclient.WithCookieJar(cookiejar.New()))
//
//	resp, err := client.Post("https://api.example.com/items").
//	    Encode(codec.JSON, item).
//	    BearerAuth(token).
//	    Send()
//	if err != nil {
//	    return err
//	}
//	if err := resp.ErrorForStatus(); err != nil {
//	    return err
//	}
//	created, err := codec.DecodeAs[Item](resp, codec.JSON)
//
// Every failure is an *Error. Use IsMalformedRequest, IsTransport,
// IsProtocol, IsCodec and IsCookieParse to branch on its class.
package httpclient
