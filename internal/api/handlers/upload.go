// upload.go — обработчик приёма загружаемых файлов.
package handlers

import (
	"log/slog"
	"net/http"

	apierrors "github.com/bigkaa/mediabackup/internal/api/errors"
	"github.com/bigkaa/mediabackup/internal/service"
)

// multipartMemoryLimit — порог буферизации multipart в памяти;
// части крупнее уходят во временные файлы.
const multipartMemoryLimit = 32 << 20 // 32 MB

// UploadHandler обрабатывает POST /upload.
//
// Ожидает multipart/form-data с файловой частью "media" и опциональным
// полем "createdAt" (YYYY-MM-DD) для выбора партиции. Ответы:
//   - 200 "File uploaded"    — файл сохранён
//   - 200 "Duplicate skipped" — дубликат, ничего не записано
//   - 400 "No file uploaded." — часть "media" отсутствует
func (h *Handler) UploadHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(multipartMemoryLimit); err != nil {
		apierrors.ValidationError(w, "No file uploaded.")
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("media")
	if err != nil {
		apierrors.ValidationError(w, "No file uploaded.")
		return
	}
	defer file.Close()

	result, ingErr := h.ingest.Ingest(r.Context(), service.IngestParams{
		Reader:           file,
		OriginalFilename: header.Filename,
		Size:             header.Size,
		CreatedAt:        r.FormValue("createdAt"),
	})
	if ingErr != nil {
		h.logger.Debug("Загрузка отклонена",
			slog.String("stage", string(ingErr.Stage)),
			slog.String("filename", header.Filename),
		)
		apierrors.WriteError(w, ingErr.StatusCode, ingErr.Message)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	switch result.Outcome {
	case service.OutcomeDuplicate:
		_, _ = w.Write([]byte("Duplicate skipped"))
	default:
		_, _ = w.Write([]byte("File uploaded"))
	}
}
