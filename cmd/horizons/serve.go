package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	horizons "github.com/aretw0/horizons"
	"github.com/aretw0/horizons/internal/adapters/redis"
	"github.com/aretw0/horizons/internal/config"
	"github.com/aretw0/horizons/internal/logging"
	"github.com/aretw0/horizons/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Expose the fetch pipeline as an HTTP API",
	Long: `Serve starts an HTTP server with a POST /fetch endpoint that runs the
full dialogue-and-transfer pipeline per request and returns the table
inline. With a Redis address configured, finished responses are cached by
request fingerprint.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		configPath, _ := flags.GetString("config")
		debug, _ := flags.GetBool("debug")

		settings, err := config.Load(configPath)
		if err != nil {
			fmt.Printf("Error loading configuration: %v\n", err)
			return err
		}
		if listen, _ := flags.GetString("listen"); listen != "" {
			settings.Serve.Listen = listen
		}

		logger := logging.New(logging.Level(debug, false))

		client := horizons.New(
			horizons.WithDialogueAddr(settings.HorizonsAddr),
			horizons.WithTransferAddr(settings.FTPAddr),
			horizons.WithTransferDir(settings.FTPDir),
			horizons.WithEmail(settings.Email),
			horizons.WithTimeout(settings.Timeout()),
			horizons.WithLogger(logger),
		)

		opts := []server.Option{server.WithLogger(logger)}
		if settings.Serve.RedisAddr != "" {
			cache := redis.New(settings.Serve.RedisAddr, settings.Serve.RedisPassword,
				settings.Serve.RedisDB, redis.WithTTL(settings.CacheTTL()))
			defer cache.Close()
			opts = append(opts, server.WithCache(cache))
			logger.Info("artifact cache enabled", "addr", settings.Serve.RedisAddr, "ttl", settings.CacheTTL())
		}

		srv := &http.Server{
			Addr:    settings.Serve.Listen,
			Handler: server.NewHandler(client, opts...),
		}

		serverErrors := make(chan error, 1)
		go func() {
			logger.Info("server listening", "addr", srv.Addr, "upstream", settings.HorizonsAddr)
			serverErrors <- srv.ListenAndServe()
		}()

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-serverErrors:
			logger.Error("server failed", "error", err)
			return err

		case sig := <-shutdown:
			logger.Info("shutting down", "signal", sig.String())

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil {
				logger.Warn("graceful shutdown incomplete", "error", err)
				if err := srv.Close(); err != nil {
					logger.Error("server close failed", "error", err)
				}
			}
			logger.Info("server stopped")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("listen", "l", "", "Listen address (default from configuration)")
}
