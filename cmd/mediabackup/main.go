// mediabackup — сервис резервного копирования медиафайлов.
//
// Принимает загрузки по HTTP, раскладывает файлы по датированным
// партициям, ведёт JSON-реестр метаданных и отдаёт галерею.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/bigkaa/mediabackup/internal/api/handlers"
	"github.com/bigkaa/mediabackup/internal/api/middleware"
	"github.com/bigkaa/mediabackup/internal/config"
	"github.com/bigkaa/mediabackup/internal/server"
	"github.com/bigkaa/mediabackup/internal/service"
	"github.com/bigkaa/mediabackup/internal/storage/blobstore"
	"github.com/bigkaa/mediabackup/internal/storage/ledger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "ошибка запуска: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Конфигурация
	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("конфигурация: %w", err)
	}

	// 2. Логирование
	logger := cfg.SetupLogger()
	slog.SetDefault(logger)

	logger.Info("Запуск сервиса резервного копирования",
		slog.Int("port", cfg.Port),
		slog.String("data_dir", cfg.DataDir),
		slog.String("db_path", cfg.DBPath),
	)

	// 3. Хранилище файлов
	store, err := blobstore.New(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("хранилище файлов: %w", err)
	}

	// 4. Реестр метаданных: загрузка с очисткой осиротевших записей.
	// Недоступность реестра фатальна, сервис без метаданных бесполезен.
	ldg := ledger.New(ledger.NewFileStore(cfg.DBPath), store.Exists, logger)
	if err := ldg.Load(); err != nil {
		return fmt.Errorf("реестр метаданных: %w", err)
	}
	middleware.FilesTotal.Set(float64(ldg.Count()))

	// 5. Фоновая сверка реестра с диском
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reconciler := service.NewReconcileService(ldg, cfg.ReconcileInterval, logger)
	reconciler.Start(ctx)
	defer reconciler.Stop()

	// 6. HTTP-обработчики и сервер
	ingest := service.NewIngestService(store, ldg, cfg.MaxFileSize, cfg.IOTimeout, logger)
	auth := middleware.NewBearerAuth(cfg.UploadToken, logger)
	h := handlers.New(ingest, ldg, store, auth.Middleware(), cfg.ProtectReads, logger)

	return server.New(cfg, h, logger).Run(ctx)
}
