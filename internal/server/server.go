// Package server runs the admin HTTP API over the keyset database.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"

	"github.com/keysmith-io/keysmith/internal"
	"github.com/keysmith-io/keysmith/internal/data"
	"github.com/keysmith-io/keysmith/internal/keyring"
	"github.com/keysmith-io/keysmith/internal/logging"
	"github.com/keysmith-io/keysmith/internal/primitives"
	"github.com/keysmith-io/keysmith/metrics"
	"github.com/keysmith-io/keysmith/secrets"
)

type ListenerOptions struct {
	HTTP    string
	Metrics string
}

type Options struct {
	Addr ListenerOptions

	// DBFile is the path to the sqlite database. Ignored when
	// DBConnectionString is set.
	DBFile string
	// DBConnectionString is a postgres connection string.
	DBConnectionString string

	// DBEncryptionKey names the root key that wraps the database data key.
	// With the file provider this is a path on disk. The root key never lives
	// in the database itself.
	DBEncryptionKey string
	// DBEncryptionKeyProvider selects where the root key is stored, one of
	// file or env.
	DBEncryptionKeyProvider string
}

type Server struct {
	options      Options
	db           *gorm.DB
	registry     *primitives.Registry
	promRegistry *prometheus.Registry

	mu       sync.Mutex
	keyrings map[string]*keyring.Keyring
}

func New(options Options) (*Server, error) {
	db, err := getDatabase(options)
	if err != nil {
		return nil, fmt.Errorf("configuring database: %w", err)
	}

	return &Server{
		options:      options,
		db:           db,
		registry:     primitives.Default(),
		promRegistry: metrics.NewRegistry(db),
		keyrings:     make(map[string]*keyring.Keyring),
	}, nil
}

// DB is exposed for tests.
func (s *Server) DB() *gorm.DB {
	return s.db
}

// Run starts the API and metrics listeners, and shuts them down when ctx is
// cancelled.
func (s *Server) Run(ctx context.Context) error {
	apiServer := &http.Server{
		Addr:    s.options.Addr.HTTP,
		Handler: s.GenerateRoutes(),
	}
	metricsServer := &http.Server{
		Addr:    s.options.Addr.Metrics,
		Handler: metrics.NewHandler(s.promRegistry),
	}

	errChan := make(chan error, 2)
	go func() {
		logging.Infof("api listening on %s", apiServer.Addr)
		errChan <- apiServer.ListenAndServe()
	}()
	go func() {
		logging.Infof("metrics listening on %s", metricsServer.Addr)
		errChan <- metricsServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			logging.Warnf("api shutdown: %v", err)
		}
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logging.Warnf("metrics shutdown: %v", err)
		}
		return nil
	case err := <-errChan:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// keyring returns a cached handle for the named keyset, opening it on first
// use. Cached handles keep their primitive caches across requests.
func (s *Server) keyring(name string) (*keyring.Keyring, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if kr, ok := s.keyrings[name]; ok {
		return kr, nil
	}

	kr, err := keyring.Open(s.db, s.registry, name)
	if err != nil {
		return nil, err
	}
	s.keyrings[name] = kr
	return kr, nil
}

func (s *Server) forgetKeyring(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.keyrings, name)
}

func getDatabase(options Options) (*gorm.DB, error) {
	driver, err := getDatabaseDriver(options)
	if err != nil {
		return nil, err
	}

	provider, err := secretProvider(options)
	if err != nil {
		return nil, err
	}

	return data.NewDB(driver, func(db *gorm.DB) error {
		return data.LoadDBKey(db, provider, options.DBEncryptionKey)
	})
}

func getDatabaseDriver(options Options) (gorm.Dialector, error) {
	if options.DBConnectionString != "" {
		return data.NewPostgresDriver(options.DBConnectionString)
	}
	if options.DBFile == "" {
		return nil, fmt.Errorf("%w: one of db-file or db-connection-string is required", internal.ErrInvalidConfiguration)
	}
	return data.NewSQLiteDriver(options.DBFile)
}

func secretProvider(options Options) (data.EncryptionKeyProvider, error) {
	switch options.DBEncryptionKeyProvider {
	case "", "file":
		return secrets.NewNativeSecretProvider(secrets.NewFileStorage(secrets.FileConfig{})), nil
	case "env":
		return secrets.NewNativeSecretProvider(secrets.NewEnvStorage(secrets.GenericConfig{
			Base64:    true,
			Base64Raw: true,
		})), nil
	default:
		return nil, fmt.Errorf("%w: unknown encryption key provider %q",
			internal.ErrInvalidConfiguration, options.DBEncryptionKeyProvider)
	}
}
