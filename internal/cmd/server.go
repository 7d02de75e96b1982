package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/keysmith-io/keysmith/internal/logging"
	"github.com/keysmith-io/keysmith/internal/server"
)

type serverOptions struct {
	AddrHTTP                string `mapstructure:"addr-http"`
	AddrMetrics             string `mapstructure:"addr-metrics"`
	LogFile                 string `mapstructure:"log-file"`
	DBFile                  string `mapstructure:"db-file"`
	DBConnectionString      string `mapstructure:"db-connection-string"`
	DBEncryptionKey         string `mapstructure:"db-encryption-key"`
	DBEncryptionKeyProvider string `mapstructure:"db-encryption-key-provider"`
}

func newServerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server",
		Short: "Start the keysmith server",
		Args:  NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var options serverOptions
			if err := parseOptions(cmd, &options, "KEYSMITH"); err != nil {
				return err
			}

			if options.LogFile != "" {
				logFile, err := canonicalPath(options.LogFile)
				if err != nil {
					return err
				}
				logging.UseFileLogger(logFile)
			} else {
				logging.UseServerLogger()
			}

			dbFile, err := canonicalPath(options.DBFile)
			if err != nil {
				return err
			}

			dbEncryptionKey, err := canonicalPath(options.DBEncryptionKey)
			if err != nil {
				return err
			}

			srv, err := server.New(server.Options{
				Addr: server.ListenerOptions{
					HTTP:    options.AddrHTTP,
					Metrics: options.AddrMetrics,
				},
				DBFile:                  dbFile,
				DBConnectionString:      options.DBConnectionString,
				DBEncryptionKey:         dbEncryptionKey,
				DBEncryptionKeyProvider: options.DBEncryptionKeyProvider,
			})
			if err != nil {
				return fmt.Errorf("creating server: %w", err)
			}
			return runServer(cmd.Context(), srv)
		},
	}

	cmd.Flags().StringP("config-file", "f", "", "Server configuration file")
	cmd.Flags().String("addr-http", ":8440", "HTTP API listen address")
	cmd.Flags().String("addr-metrics", ":9090", "Metrics listen address")
	cmd.Flags().String("log-file", "", "Write logs to a rotating file instead of stderr")
	cmd.Flags().String("db-file", "$HOME/.keysmith/keysmith.db", "Path to SQLite 3 database")
	cmd.Flags().String("db-connection-string", "", "PostgreSQL connection string")
	cmd.Flags().String("db-encryption-key", "$HOME/.keysmith/keysmith.db.key", "Database encryption key")
	cmd.Flags().String("db-encryption-key-provider", "file", "Database encryption key provider [file, env]")

	return cmd
}

// shim for testing
var runServer = func(ctx context.Context, srv *server.Server) error {
	return srv.Run(ctx)
}
