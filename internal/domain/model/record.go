// Пакет model — доменные модели сервиса резервного копирования медиа.
// FileRecord — единая структура записи о загруженном файле, используется
// как in-memory представление и как элемент коллекции files в db.json.
package model

import (
	"time"
)

// FileRecord — запись о загруженном файле. Соответствует элементу
// коллекции "files" в документе метаданных на диске.
// Записи неизменяемы после создания: реестр только добавляет новые
// и удаляет осиротевшие, но никогда не изменяет поля.
type FileRecord struct {
	// ID — уникальный идентификатор записи (UUID v4).
	// Зарезервирован как внешний ключ для будущей адресации.
	ID string `json:"id"`

	// Original — оригинальное имя файла при загрузке.
	// Недоверенное, используется только для отображения
	// и как часть ключа дедупликации.
	Original string `json:"original"`

	// Path — путь файла на диске относительно корня хранилища.
	// Формат: {YYYY-MM-DD}/{token}-{имя}. Связывает запись с blob.
	Path string `json:"path"`

	// Size — размер файла в байтах на момент загрузки.
	// Вторая часть ключа дедупликации.
	Size int64 `json:"size"`

	// UploadedAt — дата и время загрузки (UTC).
	// Используется для сортировки и группировки в галерее.
	UploadedAt time.Time `json:"uploadedAt"`
}

// DedupKey — ключ дедупликации: пара (оригинальное имя, размер).
type DedupKey struct {
	Original string
	Size     int64
}

// Key возвращает ключ дедупликации записи.
func (r *FileRecord) Key() DedupKey {
	return DedupKey{Original: r.Original, Size: r.Size}
}

// Matches проверяет, совпадает ли запись с парой (имя, размер).
func (r *FileRecord) Matches(original string, size int64) bool {
	return r.Original == original && r.Size == size
}
