// files.go — раздача сырых blob-файлов по относительному пути.
package handlers

import (
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/bigkaa/mediabackup/internal/api/errors"
)

// FileHandler обрабатывает GET /file/*.
//
// Хвост маршрута — путь файла относительно корня хранилища
// (2026-08-29/abc123-photo.jpg). Пути, выходящие за пределы корня,
// отклоняются с 400. ServeContent выставляет Content-Type и
// поддерживает Range-запросы (важно для видео).
func (h *Handler) FileHandler(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "*")
	relPath, err := url.PathUnescape(raw)
	if err != nil || relPath == "" {
		apierrors.ValidationError(w, "Invalid file path")
		return
	}

	fullPath, err := h.store.Resolve(relPath)
	if err != nil {
		h.logger.Warn("Отклонён путь за пределами хранилища",
			slog.String("path", relPath),
			slog.String("remote_addr", r.RemoteAddr),
		)
		apierrors.ValidationError(w, "Invalid file path")
		return
	}

	info, err := os.Stat(fullPath)
	if err != nil || info.IsDir() {
		apierrors.NotFound(w, "File not found")
		return
	}

	f, err := os.Open(fullPath)
	if err != nil {
		h.logger.Error("Ошибка открытия файла",
			slog.String("path", relPath),
			slog.String("error", err.Error()),
		)
		apierrors.InternalError(w, "Failed to read file")
		return
	}
	defer f.Close()

	http.ServeContent(w, r, filepath.Base(fullPath), info.ModTime(), f)
}
