package setup

import (
	"errors"
	"fmt"
	"sync"

	"github.com/kbukum/anyhttp/encryption"
	"github.com/kbukum/anyhttp/httpclient"
	"github.com/kbukum/anyhttp/httpclient/backend"
	"github.com/kbukum/anyhttp/httpclient/cookiejar"
	"github.com/kbukum/anyhttp/logger"
	"github.com/kbukum/anyhttp/observability"
)

// session holds what both client kinds share: the jar and its persistence.
type session struct {
	cfg     Config
	backend string
	jar     *cookiejar.Jar
	sealer  encryption.Sealer
	log     *logger.Logger
	once    sync.Once
}

func newSession(cfg Config, name string) (*session, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &session{
		cfg:     cfg,
		backend: name,
		log:     logger.Get("setup").WithFields(logger.Fields(logger.FieldBackend, name)),
	}
	if err := s.openJar(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *session) openJar() error {
	c := s.cfg.Cookies
	if !c.Enabled {
		return nil
	}
	policy, _ := cookiejar.ParsePolicy(c.Policy)
	s.jar = cookiejar.New(cookiejar.WithPolicy(policy))
	if c.PersistPath == "" {
		return nil
	}
	if c.EncryptionKey != "" {
		var opts []encryption.Option
		if c.EncryptionAlgorithm != "" {
			opts = append(opts, encryption.WithAlgorithm(encryption.Algorithm(c.EncryptionAlgorithm)))
		}
		sealer, err := encryption.New(c.EncryptionKey, opts...)
		if err != nil {
			return fmt.Errorf("setup: cookie sealer: %w", err)
		}
		s.sealer = sealer
	}
	if err := s.jar.LoadFile(c.PersistPath, s.sealer); err != nil {
		return fmt.Errorf("setup: load cookies: %w", err)
	}
	s.log.Debug("cookies loaded", logger.Fields("path", c.PersistPath, "count", s.jar.Len()))
	return nil
}

// options returns the client options for the enabled features, followed
// by extra.
func (s *session) options(extra []httpclient.Option) ([]httpclient.Option, error) {
	opts := s.cfg.Config.Options()
	if s.jar != nil {
		opts = append(opts, httpclient.WithCookieJar(s.jar))
	}
	if s.cfg.Tracing {
		obs, err := observability.NewHTTPObserver()
		if err != nil {
			return nil, fmt.Errorf("setup: observer: %w", err)
		}
		opts = append(opts, httpclient.WithObserver(obs))
	}
	return append(opts, extra...), nil
}

// close persists the jar, then runs closeBackend. It runs once.
func (s *session) close(closeBackend func() error) error {
	var err error
	s.once.Do(func() {
		var errs []error
		if s.jar != nil && s.cfg.Cookies.PersistPath != "" {
			if saveErr := s.jar.SaveFile(s.cfg.Cookies.PersistPath, s.sealer); saveErr != nil {
				errs = append(errs, fmt.Errorf("setup: save cookies: %w", saveErr))
			}
		}
		errs = append(errs, closeBackend())
		err = errors.Join(errs...)
		s.log.Debug("client closed")
	})
	return err
}

// SyncClient is a blocking client bound to the backend it owns.
type SyncClient struct {
	*httpclient.Client
	sess    *session
	backend backend.SyncBackend
}

// Sync opens cfg.Backend from the blocking registry and builds a client
// around it. It returns backend.ErrBackendNotCompiled when the backend's
// package was not imported.
func Sync(cfg Config, opts ...httpclient.Option) (*SyncClient, error) {
	name := cfg.Backend
	if name == "" {
		name = DefaultSyncBackend
	}
	sess, err := newSession(cfg, name)
	if err != nil {
		return nil, err
	}
	b, err := backend.OpenSync(name, sess.cfg.backendOptions(name))
	if err != nil {
		return nil, err
	}
	clientOpts, err := sess.options(opts)
	if err != nil {
		_ = b.Close()
		return nil, err
	}
	sess.log.Info("http client ready", logger.Fields("mode", "sync", "cookies", sess.jar != nil))
	return &SyncClient{
		Client:  httpclient.NewClient(b, clientOpts...),
		sess:    sess,
		backend: b,
	}, nil
}

// Jar returns the cookie jar, or nil when cookies are disabled.
func (c *SyncClient) Jar() *cookiejar.Jar { return c.sess.jar }

// Backend returns the backend the client runs on.
func (c *SyncClient) Backend() backend.SyncBackend { return c.backend }

// Close persists the jar when configured and closes the backend.
func (c *SyncClient) Close() error { return c.sess.close(c.backend.Close) }

// AsyncClient is a suspending client bound to the backend it owns.
type AsyncClient struct {
	*httpclient.AsyncClient
	sess    *session
	backend backend.AsyncBackend
}

// Async opens cfg.Backend from the suspending registry and builds a client
// around it. It returns backend.ErrBackendNotCompiled when the backend's
// package was not imported.
func Async(cfg Config, opts ...httpclient.Option) (*AsyncClient, error) {
	name := cfg.Backend
	if name == "" {
		name = DefaultAsyncBackend
	}
	sess, err := newSession(cfg, name)
	if err != nil {
		return nil, err
	}
	b, err := backend.OpenAsync(name, sess.cfg.backendOptions(name))
	if err != nil {
		return nil, err
	}
	clientOpts, err := sess.options(opts)
	if err != nil {
		_ = b.Close()
		return nil, err
	}
	sess.log.Info("http client ready", logger.Fields("mode", "async", "cookies", sess.jar != nil))
	return &AsyncClient{
		AsyncClient: httpclient.NewAsyncClient(b, clientOpts...),
		sess:        sess,
		backend:     b,
	}, nil
}

// Jar returns the cookie jar, or nil when cookies are disabled.
func (c *AsyncClient) Jar() *cookiejar.Jar { return c.sess.jar }

// Backend returns the backend the client runs on.
func (c *AsyncClient) Backend() backend.AsyncBackend { return c.backend }

// Close persists the jar when configured and closes the backend.
func (c *AsyncClient) Close() error { return c.sess.close(c.backend.Close) }
