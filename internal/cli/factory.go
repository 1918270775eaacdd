package cli

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aretw0/vigil"
	"github.com/aretw0/vigil/pkg/adapters/bolt"
	"github.com/aretw0/vigil/pkg/adapters/file"
	"github.com/aretw0/vigil/pkg/adapters/memory"
	"github.com/aretw0/vigil/pkg/adapters/process"
	"github.com/aretw0/vigil/pkg/adapters/redis"
	"github.com/aretw0/vigil/pkg/catalog"
	"github.com/aretw0/vigil/pkg/observability"
	"github.com/aretw0/vigil/pkg/persistence/middleware"
	"github.com/aretw0/vigil/pkg/ports"
	"github.com/aretw0/vigil/pkg/schema"
)

// EncryptionKeyEnv names the variable holding the report encryption key
// (32 bytes, hex or base64).
const EncryptionKeyEnv = "VIGIL_ENCRYPTION_KEY"

// Options collects the engine flags shared by the commands.
type Options struct {
	Dir        string
	Loam       bool
	OpenAPI    []string
	Validators string
	Timeout    time.Duration

	// Store is one of memory, file, bolt or redis.
	Store         string
	StorePath     string
	RedisAddr     string
	RedisTTL      time.Duration
	KeepDocuments bool
	Mask          []string
	Encrypt       bool
}

// Setup is an engine plus the resources the command must release.
type Setup struct {
	Engine  *vigil.Engine
	Metrics *observability.Metrics
	closers []io.Closer
}

// Close releases the report store.
func (s *Setup) Close() error {
	var first error
	for _, c := range s.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// NewEngine initializes an engine with standard CLI conventions.
func NewEngine(opts Options, logger *slog.Logger) (*Setup, error) {
	setup := &Setup{Metrics: observability.NewMetrics()}
	engineOpts := []vigil.Option{
		vigil.WithLogger(logger),
		vigil.WithObserver(observability.Multi{setup.Metrics, observability.LogObserver{Logger: logger}}),
		vigil.WithDocuments(opts.KeepDocuments),
	}
	if opts.Timeout > 0 {
		engineOpts = append(engineOpts, vigil.WithTimeout(opts.Timeout))
	}

	if opts.Loam {
		src, err := vigil.NewLoamSource(opts.Dir)
		if err != nil {
			return nil, err
		}
		engineOpts = append(engineOpts, vigil.WithSource(src))
	}

	for _, path := range opts.OpenAPI {
		doc, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read openapi document: %w", err)
		}
		engineOpts = append(engineOpts, vigil.WithOpenAPI(doc))
	}

	customs, err := loadValidators(opts, logger)
	if err != nil {
		return nil, err
	}
	engineOpts = append(engineOpts, vigil.WithCustoms(customs))

	store, err := setup.openStore(opts)
	if err != nil {
		return nil, err
	}
	engineOpts = append(engineOpts, vigil.WithStore(store))

	eng, err := vigil.New(opts.Dir, engineOpts...)
	if err != nil {
		setup.Close()
		return nil, fmt.Errorf("error initializing engine: %w", err)
	}
	setup.Engine = eng
	return setup, nil
}

// loadValidators registers the built-in checks and the external validators
// of the config file. A missing config file is not an error.
func loadValidators(opts Options, logger *slog.Logger) (*catalog.CustomRegistry, error) {
	customs := catalog.NewCustomRegistry()
	if err := registerBuiltins(customs); err != nil {
		return nil, err
	}

	path := opts.Validators
	if path == "" {
		path = filepath.Join(opts.Dir, ".vigil", "validators.yaml")
	}
	configs, err := process.LoadValidators(path)
	if err != nil {
		return nil, err
	}
	runner := process.NewRunner(
		process.WithRegistry(configs),
		process.WithBaseDir(filepath.Dir(path)),
		process.WithLogger(logger),
	)
	if err := runner.Install(customs); err != nil {
		return nil, err
	}
	return customs, nil
}

func (s *Setup) openStore(opts Options) (ports.ReportStore, error) {
	var store ports.ReportStore
	switch opts.Store {
	case "", "memory":
		store = memory.NewStore()
	case "file":
		path := opts.StorePath
		if path == "" {
			path = filepath.Join(opts.Dir, ".vigil", "reports")
		}
		store = file.NewStore(path)
	case "bolt":
		path := opts.StorePath
		if path == "" {
			path = filepath.Join(opts.Dir, ".vigil", "reports.db")
		}
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, err
		}
		b, err := bolt.Open(path)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, b)
		store = b
	case "redis":
		addr := opts.RedisAddr
		if addr == "" {
			addr = "localhost:6379"
		}
		var redisOpts []redis.Option
		if opts.RedisTTL > 0 {
			redisOpts = append(redisOpts, redis.WithTTL(opts.RedisTTL))
		}
		r := redis.New(addr, os.Getenv("VIGIL_REDIS_PASSWORD"), 0, redisOpts...)
		s.closers = append(s.closers, r)
		store = r
	default:
		return nil, fmt.Errorf("unknown store %q (memory, file, bolt, redis)", opts.Store)
	}

	var mws []middleware.Middleware
	if len(opts.Mask) > 0 {
		pii, err := middleware.NewPIIMiddleware(opts.Mask)
		if err != nil {
			return nil, fmt.Errorf("invalid mask pattern: %w", err)
		}
		mws = append(mws, pii)
	}
	if opts.Encrypt {
		key, err := parseKey(os.Getenv(EncryptionKeyEnv))
		if err != nil {
			return nil, err
		}
		enc, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key})
		if err != nil {
			return nil, err
		}
		mws = append(mws, enc)
	}
	return middleware.Wrap(store, mws...), nil
}

func parseKey(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("%s is not set", EncryptionKeyEnv)
	}
	if key, err := hex.DecodeString(s); err == nil && len(key) == 32 {
		return key, nil
	}
	if key, err := base64.StdEncoding.DecodeString(s); err == nil && len(key) == 32 {
		return key, nil
	}
	return nil, fmt.Errorf("%s must hold 32 bytes in hex or base64", EncryptionKeyEnv)
}

// registerBuiltins adds the checks every catalog can name in `custom:`.
func registerBuiltins(customs *catalog.CustomRegistry) error {
	builtins := map[string]schema.CustomFunc{
		"nonBlank": func(f *schema.Field, value any, vc *schema.Context) schema.Result {
			if s, ok := value.(string); ok && strings.TrimSpace(s) == "" {
				return schema.Fail(schema.CodeInvalid)
			}
			return schema.Pass()
		},
	}
	for name, fn := range builtins {
		if err := customs.Register(name, fn); err != nil {
			return err
		}
	}
	return nil
}
