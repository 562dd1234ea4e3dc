package service

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/stake-plus/simd-tracker/src/logging"
)

var _ Module = (*HTTPServer)(nil)

// HTTPServer serves a handler until stopped.
type HTTPServer struct {
	srv  *http.Server
	addr net.Addr
	log  *zap.Logger
}

func NewHTTPServer(addr string, h http.Handler, log *zap.Logger) *HTTPServer {
	return &HTTPServer{
		srv: &http.Server{
			Addr:              addr,
			Handler:           h,
			ReadHeaderTimeout: 10 * time.Second,
		},
		log: logging.OrNop(log).Named("http"),
	}
}

func (h *HTTPServer) Name() string { return "http" }

// Start binds the listener before returning so port errors fail startup.
func (h *HTTPServer) Start(context.Context) error {
	ln, err := net.Listen("tcp", h.srv.Addr)
	if err != nil {
		return err
	}
	h.addr = ln.Addr()
	go func() {
		if err := h.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			h.log.Error("http server stopped", zap.Error(err))
		}
	}()
	h.log.Info("listening", zap.String("addr", h.addr.String()))
	return nil
}

// Addr is the bound address once started.
func (h *HTTPServer) Addr() net.Addr { return h.addr }

func (h *HTTPServer) Stop(ctx context.Context) {
	shutCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	_ = h.srv.Shutdown(shutCtx)
}
