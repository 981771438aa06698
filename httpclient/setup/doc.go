// Package setup builds ready-to-use clients from configuration: it opens
// the named backend from the backend registry and wires the cookie jar,
// request ids, rate limiting and tracing the configuration enables.
//
// Backends register themselves when their package is imported:
//
//	import (
//		_ "github.com/kbukum/anyhttp/httpclient/backend/blocking"
//		_ "github.com/kbukum/anyhttp/httpclient/backend/suspend"
//	)
//
//	var cfg setup.Config
//	if err := config.Load("anyhttp", &cfg); err != nil {
//		return err
//	}
//	client, err := setup.Async(cfg)
//	if err != nil {
//		return err
//	}
//	defer client.Close()
package setup
