package main

import (
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tsawler/nashville/history"
	"github.com/tsawler/nashville/observe"
	"github.com/tsawler/nashville/pipeline"
	"github.com/tsawler/nashville/server"
	"github.com/tsawler/nashville/storage"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the converter over HTTP",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}
	if !verbose {
		gin.SetMode(gin.ReleaseMode)
	}

	store := storage.New(cfg.Storage.TempURL)
	p := pipeline.New(cfg.Pipeline(),
		pipeline.WithStore(store),
		pipeline.WithSink(observe.NewZapSink(logger)),
	)

	opts := []server.Option{server.WithLogger(logger), server.WithStore(store)}
	if path := cfg.History.DatabasePath; path != "" {
		h, err := history.Open(path)
		if err != nil {
			return err
		}
		defer h.Close()
		opts = append(opts, server.WithHistory(h))
		logger.Info("conversion history enabled", zap.String("path", path))
	}

	return server.New(cfg, p, opts...).ListenAndServe(cmd.Context())
}
