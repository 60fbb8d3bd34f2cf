// Пакет server — HTTP-сервер сервиса резервного копирования.
package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bigkaa/mediabackup/internal/api/handlers"
	"github.com/bigkaa/mediabackup/internal/api/middleware"
	"github.com/bigkaa/mediabackup/internal/config"
)

// Server — HTTP-сервер с graceful shutdown.
type Server struct {
	cfg    *config.Config
	srv    *http.Server
	logger *slog.Logger
}

// New создаёт HTTP-сервер и настраивает маршрутизацию.
func New(cfg *config.Config, h *handlers.Handler, logger *slog.Logger) *Server {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.MetricsMiddleware())
	r.Use(chimiddleware.Recoverer)

	r.Handle("/metrics", promhttp.Handler())
	h.Routes(r)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	if cfg.TLSCert != "" {
		srv.TLSConfig = &tls.Config{
			MinVersion: tls.VersionTLS12,
		}
	}

	return &Server{
		cfg:    cfg,
		srv:    srv,
		logger: logger.With(slog.String("component", "server")),
	}
}

// Run запускает сервер и блокируется до SIGINT/SIGTERM или отмены
// контекста, затем выполняет graceful shutdown с таймаутом.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		var err error
		if s.cfg.TLSCert != "" {
			s.logger.Info("HTTPS сервер запущен",
				slog.String("addr", s.srv.Addr),
			)
			err = s.srv.ListenAndServeTLS(s.cfg.TLSCert, s.cfg.TLSKey)
		} else {
			s.logger.Info("HTTP сервер запущен",
				slog.String("addr", s.srv.Addr),
			)
			err = s.srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case err := <-errCh:
		return fmt.Errorf("ошибка HTTP сервера: %w", err)
	case sig := <-stop:
		s.logger.Info("Получен сигнал завершения",
			slog.String("signal", sig.String()),
		)
	case <-ctx.Done():
		s.logger.Info("Контекст сервера отменён")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("ошибка graceful shutdown: %w", err)
	}

	s.logger.Info("Сервер остановлен")
	return nil
}
