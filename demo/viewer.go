package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorustyt/navcache/common/log"
	"github.com/gorustyt/navcache/viewsync"
	"go.uber.org/zap"
)

type viewer struct {
	hub *viewsync.Hub
	srv *http.Server
}

func newViewer(addr string) *viewer {
	hub := viewsync.NewHub()
	mux := http.NewServeMux()
	mux.Handle("/ws", hub)
	return &viewer{
		hub: hub,
		srv: &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second},
	}
}

// serve runs until ctx ends.
func (v *viewer) serve(ctx context.Context) error {
	errc := make(chan error, 1)
	go func() { errc <- v.srv.ListenAndServe() }()
	log.Info("viewer listening", zap.String("addr", v.srv.Addr))

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := v.srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
