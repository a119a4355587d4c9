package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	cfg "github.com/maastricht-university/dialogue-arena/config"
	"github.com/maastricht-university/dialogue-arena/server"
)

const shutdownTimeout = 10 * time.Second

func serve(ctx context.Context, c *cfg.Root) error {
	if c.Pipeline.LogLvl != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := &http.Server{
		Addr:              c.Serve.Addr,
		Handler:           server.New(c.Paths.Outputs, c.Serve.CORSOrigins, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.WithField("addr", c.Serve.Addr).Info("serving runs")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
