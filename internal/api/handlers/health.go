// health.go — обработчики проверки состояния сервиса.
package handlers

import (
	"net/http"
	"os"
	"path/filepath"

	apierrors "github.com/bigkaa/mediabackup/internal/api/errors"
)

// RootHandler обрабатывает GET /.
// Тело ответа зафиксировано внешним интерфейсом сервиса.
func (h *Handler) RootHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("Media backup server is running."))
}

// LivenessHandler обрабатывает GET /health/live.
// Процесс жив и обслуживает запросы.
func (h *Handler) LivenessHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// ReadinessHandler обрабатывает GET /health/ready.
// Готовность: реестр загружен и директория хранения доступна на запись
// (проверяется созданием probe-файла).
func (h *Handler) ReadinessHandler(w http.ResponseWriter, _ *http.Request) {
	if !h.ldg.IsReady() {
		apierrors.PersistenceUnavailable(w, "Ledger not loaded")
		return
	}

	probe := filepath.Join(h.store.Root(), ".health-probe")
	f, err := os.Create(probe)
	if err != nil {
		apierrors.PersistenceUnavailable(w, "Storage not writable")
		return
	}
	f.Close()
	os.Remove(probe)

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}
