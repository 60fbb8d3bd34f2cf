// Пакет handlers — HTTP-обработчики сервиса резервного копирования.
package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bigkaa/mediabackup/internal/service"
	"github.com/bigkaa/mediabackup/internal/storage/blobstore"
	"github.com/bigkaa/mediabackup/internal/storage/ledger"
)

// Handler — HTTP-обработчики сервиса.
type Handler struct {
	ingest *service.IngestService
	ldg    *ledger.Ledger
	store  *blobstore.BlobStore

	// auth — middleware аутентификации bearer-токеном
	auth func(http.Handler) http.Handler
	// protectReads — требовать аутентификацию и на read-путях
	// (галерея, раздача файлов)
	protectReads bool

	logger *slog.Logger
}

// New создаёт HTTP-обработчики.
func New(
	ingest *service.IngestService,
	ldg *ledger.Ledger,
	store *blobstore.BlobStore,
	auth func(http.Handler) http.Handler,
	protectReads bool,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		ingest:       ingest,
		ldg:          ldg,
		store:        store,
		auth:         auth,
		protectReads: protectReads,
		logger:       logger.With(slog.String("component", "handlers")),
	}
}

// Routes регистрирует маршруты сервиса.
//
// Запись всегда за аутентификацией; чтение — по флагу protectReads
// (исторически галерея и файлы открыты внутри доверенной сети).
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.RootHandler)
	r.Get("/health/live", h.LivenessHandler)
	r.Get("/health/ready", h.ReadinessHandler)

	r.Group(func(r chi.Router) {
		r.Use(h.auth)
		r.Post("/upload", h.UploadHandler)
	})

	r.Group(func(r chi.Router) {
		if h.protectReads {
			r.Use(h.auth)
		}
		r.Get("/gallery", h.GalleryHandler)
		r.Get("/file/*", h.FileHandler)
	})
}
