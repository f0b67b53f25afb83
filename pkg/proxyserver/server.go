// Package proxyserver runs the standalone proxy listeners: one HTTP server
// per backend type on a dedicated port, plus one for share links. Unlike
// the integrated API, paths here carry no type segment; the port decides
// the backend.
package proxyserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/syaikhipin/aidatasharing-sub001/pkg/config"
	"github.com/syaikhipin/aidatasharing-sub001/pkg/handlers"
	"github.com/syaikhipin/aidatasharing-sub001/pkg/middleware"
)

// Server manages the per-backend standalone listeners.
type Server struct {
	cfg     *config.Config
	proxy   *handlers.ProxyHandler
	limiter *middleware.RateLimiter
	logger  *zap.Logger

	servers []*http.Server
}

// New creates the standalone proxy server set.
func New(cfg *config.Config, proxy *handlers.ProxyHandler, limiter *middleware.RateLimiter, logger *zap.Logger) *Server {
	return &Server{
		cfg:     cfg,
		proxy:   proxy,
		limiter: limiter,
		logger:  logger,
	}
}

// listenerSpec binds one backend type to its configured port.
type listenerSpec struct {
	proxyType string
	port      int
}

func (s *Server) specs() []listenerSpec {
	ports := &s.cfg.Proxy.StandalonePorts
	return []listenerSpec{
		{"mysql", ports.MySQL},
		{"postgres", ports.Postgres},
		{"api", ports.API},
		{"clickhouse", ports.ClickHouse},
		{"mongodb", ports.MongoDB},
		{"s3", ports.S3},
	}
}

// Start launches every configured listener. It blocks until one of them
// fails or the context is cancelled, then shuts all of them down.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, len(s.specs())+1)

	launch := func(port int, label string, mux *http.ServeMux) {
		handler := s.limiter.Limit(middleware.RequestLogger(s.logger)(mux))
		srv := &http.Server{
			Addr:         fmt.Sprintf("%s:%d", s.cfg.BindAddr, port),
			Handler:      handler,
			ReadTimeout:  35 * time.Second,
			WriteTimeout: 35 * time.Second,
		}
		s.servers = append(s.servers, srv)

		s.logger.Info("standalone proxy listener starting",
			zap.String("backend", label),
			zap.String("addr", srv.Addr))

		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("%s listener: %w", label, err)
			}
		}()
	}

	for _, spec := range s.specs() {
		if spec.port <= 0 {
			continue
		}
		launch(spec.port, spec.proxyType, s.proxy.StandaloneMux(spec.proxyType))
	}
	if port := s.cfg.Proxy.StandalonePorts.Share; port > 0 {
		launch(port, "share", s.proxy.ShareMux())
	}

	select {
	case err := <-errCh:
		s.shutdownAll()
		return err
	case <-ctx.Done():
		s.shutdownAll()
		return nil
	}
}

func (s *Server) shutdownAll() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for _, srv := range s.servers {
		if err := srv.Shutdown(ctx); err != nil {
			s.logger.Warn("listener shutdown failed",
				zap.String("addr", srv.Addr),
				zap.Error(err))
		}
	}
}
