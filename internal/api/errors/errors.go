// Пакет errors — запись HTTP-ответов с ошибками.
// Внешний интерфейс сервиса фиксирует короткие текстовые тела
// ("Unauthorized", "No file uploaded."), поэтому формат — plain text.
// Внутренние детали (пути, stack traces) клиенту не раскрываются.
package errors //nolint:revive // имя пакета повторяет слой api/errors, конфликт со stdlib осознанный

import (
	"net/http"
)

// WriteError записывает текстовый ответ ошибки.
// statusCode — HTTP статус-код, message — короткая причина для клиента.
func WriteError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(statusCode)
	_, _ = w.Write([]byte(message))
}

// --- Конструкторы для типичных ошибок ---

// ValidationError — 400 некорректные входные данные.
func ValidationError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, message)
}

// Unauthorized — 401, тело зафиксировано внешним интерфейсом.
func Unauthorized(w http.ResponseWriter) {
	WriteError(w, http.StatusUnauthorized, "Unauthorized")
}

// NotFound — 404 ресурс не найден.
func NotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, message)
}

// FileTooLarge — 413 файл превышает лимит.
func FileTooLarge(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusRequestEntityTooLarge, message)
}

// InternalError — 500 внутренняя ошибка.
func InternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, message)
}

// PersistenceUnavailable — 503 хранилище метаданных недоступно.
func PersistenceUnavailable(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusServiceUnavailable, message)
}
