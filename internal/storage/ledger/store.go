// store.go — порт персистентности реестра и его файловая реализация.
// Документ метаданных — единый JSON-файл вида {"files":[...]},
// перезаписываемый целиком. Все операции записи выполняются атомарно:
// temp → fsync → rename.
package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bigkaa/mediabackup/internal/domain/model"
)

// ErrPersistenceUnavailable — носитель метаданных недоступен для
// чтения или записи. При загрузке — фатально для старта сервиса,
// при добавлении записи — фатально для запроса.
var ErrPersistenceUnavailable = errors.New("хранилище метаданных недоступно")

// Store — порт персистентности реестра. Load/Save работают с полной
// коллекцией записей: стратегия персистентности — полная перезапись.
type Store interface {
	// Load читает все записи из носителя.
	// Отсутствие документа — первый запуск, возвращается пустой набор.
	Load() ([]*model.FileRecord, error)
	// Save атомарно перезаписывает полную коллекцию записей.
	Save(records []*model.FileRecord) error
}

// document — формат документа метаданных на диске.
type document struct {
	Files []*model.FileRecord `json:"files"`
}

// FileStore — файловая реализация Store: один JSON-документ на диске.
type FileStore struct {
	path string
}

// NewFileStore создаёт файловое хранилище документа метаданных.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path возвращает путь к документу метаданных.
func (s *FileStore) Path() string {
	return s.path
}

// Load читает и десериализует документ метаданных.
// Отсутствующий файл — не ошибка: возвращается пустой набор записей.
// Ошибка чтения или невалидный JSON → ErrPersistenceUnavailable.
func (s *FileStore) Load() ([]*model.FileRecord, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: ошибка чтения %s: %w", ErrPersistenceUnavailable, s.path, err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: невалидный документ %s: %w", ErrPersistenceUnavailable, s.path, err)
	}

	return doc.Files, nil
}

// Save атомарно перезаписывает документ метаданных.
// Паттерн: JSON → temp файл → fsync → atomic rename.
// Любая ошибка записи → ErrPersistenceUnavailable.
func (s *FileStore) Save(records []*model.FileRecord) error {
	if records == nil {
		records = []*model.FileRecord{}
	}

	data, err := json.MarshalIndent(document{Files: records}, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: ошибка сериализации: %w", ErrPersistenceUnavailable, err)
	}

	// Создаём директорию если не существует
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("%w: не удалось создать директорию %s: %w", ErrPersistenceUnavailable, dir, err)
	}

	tmpPath := s.path + ".tmp"

	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("%w: ошибка создания временного файла: %w", ErrPersistenceUnavailable, err)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("%w: ошибка записи: %w", ErrPersistenceUnavailable, err)
	}

	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("%w: ошибка fsync: %w", ErrPersistenceUnavailable, err)
	}

	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: ошибка закрытия файла: %w", ErrPersistenceUnavailable, err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: ошибка атомарного переименования: %w", ErrPersistenceUnavailable, err)
	}

	return nil
}
