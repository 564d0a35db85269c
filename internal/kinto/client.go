// Package kinto wires together a Storage Adapter, an Identifier Schema, a
// Transformer Pipeline, a Hook Dispatcher and a Remote Facade into ready-to-use
// Collections, following the teacher's NewManager(storage, metadataStore)
// factory wiring pattern.
package kinto

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/maxiofs/collectionsync/internal/collection"
	"github.com/maxiofs/collectionsync/internal/hook"
	"github.com/maxiofs/collectionsync/internal/idschema"
	"github.com/maxiofs/collectionsync/internal/remote"
	"github.com/maxiofs/collectionsync/internal/storage"
	"github.com/maxiofs/collectionsync/internal/transform"
)

// StorageBackend selects the durable Storage Adapter implementation a
// Client opens for each collection.
type StorageBackend string

const (
	BackendMemory StorageBackend = "memory"
	BackendBadger StorageBackend = "badger"
	BackendPebble StorageBackend = "pebble"
)

// ClientOptions configures a Client.
type ClientOptions struct {
	DataDir string
	Backend StorageBackend

	// RemoteURL, when non-empty, constructs an HTTPFacade shared by every
	// Collection the Client creates. Leave empty for local-only use.
	RemoteURL  string
	JWTKey     []byte
	JWTSubject string

	// Timeout bounds each HTTP request the facade makes; zero keeps
	// HTTPFacade's own default. MaxRetries bounds the exponential-backoff
	// retry count for each request; zero keeps HTTPFacade's own default.
	Timeout    time.Duration
	MaxRetries uint64

	Pipeline *transform.Pipeline
	Hooks    *hook.Dispatcher
	Logger   *logrus.Logger
}

// Client is the composition root: it opens Storage Adapters and constructs
// Collections bound to a shared Remote Facade, the way the teacher's bucket
// manager is constructed once and handed a storage backend and a metadata
// store at startup.
type Client struct {
	opts   ClientOptions
	facade remote.Facade
	logger *logrus.Logger
}

// New returns a Client. The Remote Facade (if RemoteURL is set) is
// constructed here, once, and handed to every Collection — Collections
// never construct their own facade, which is what would create a
// facade-constructs-collection / collection-holds-facade cycle.
func New(opts ClientOptions) *Client {
	if opts.Backend == "" {
		opts.Backend = BackendMemory
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}

	var facade remote.Facade
	if opts.RemoteURL != "" {
		httpFacade := remote.NewHTTPFacade(remote.HTTPFacadeOptions{
			BaseURL:    opts.RemoteURL,
			Timeout:    opts.Timeout,
			MaxRetries: opts.MaxRetries,
			Logger:     opts.Logger,
		})
		if opts.JWTKey != nil {
			httpFacade.WithJWTAuth(opts.JWTKey, opts.JWTSubject)
		}
		facade = httpFacade
	}

	return &Client{opts: opts, facade: facade, logger: opts.Logger}
}

// Collection opens (or creates) the Storage Adapter for (bucket, name) and
// returns a Collection bound to it, the Client's shared Remote Facade (if
// any), and the Client's Pipeline/Hooks.
func (c *Client) Collection(bucket, name string) (*collection.Collection, error) {
	adapter, err := c.openAdapter(bucket, name)
	if err != nil {
		return nil, err
	}

	opts := []collection.Option{
		WithDefaultIdentifierSchema(),
		collection.WithLogger(c.logger),
	}
	if c.opts.Pipeline != nil {
		opts = append(opts, collection.WithPipeline(c.opts.Pipeline))
	}
	if c.opts.Hooks != nil {
		opts = append(opts, collection.WithHooks(c.opts.Hooks))
	}
	if c.facade != nil {
		opts = append(opts, collection.WithFacade(c.facade))
	}

	return collection.New(bucket, name, adapter, opts...), nil
}

// WithDefaultIdentifierSchema is a collection.Option returning the package
// default (UUIDSchema); kept as a named helper so Client.Collection reads the
// same way regardless of whether future options expose a way to override it
// per-collection.
func WithDefaultIdentifierSchema() collection.Option {
	return collection.WithIdentifierSchema(idschema.UUIDSchema{})
}

func (c *Client) openAdapter(bucket, name string) (storage.Adapter, error) {
	switch c.opts.Backend {
	case BackendMemory:
		return storage.NewMemoryAdapter(), nil
	case BackendBadger:
		return storage.OpenBadgerAdapter(storage.BadgerOptions{
			DataDir:    filepath.Join(c.opts.DataDir, bucket, name),
			Bucket:     bucket,
			Collection: name,
			Logger:     c.logger,
		})
	case BackendPebble:
		return storage.OpenPebbleAdapter(storage.PebbleAdapterOptions{
			DataDir:    filepath.Join(c.opts.DataDir, bucket, name),
			Bucket:     bucket,
			Collection: name,
			Logger:     c.logger,
		})
	default:
		return nil, fmt.Errorf("kinto: unknown storage backend %q", c.opts.Backend)
	}
}

// Events returns the shared Remote Facade's event emitter, or nil if this
// Client has no remote configured.
func (c *Client) Events() *remote.EventEmitter {
	if c.facade == nil {
		return nil
	}
	return c.facade.Events()
}
