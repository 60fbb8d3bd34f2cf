// Пакет blobstore — физическое размещение загруженных файлов на диске.
// Файлы хранятся в партициях по календарной дате (YYYY-MM-DD), имена
// получают короткий случайный префикс для устойчивости к коллизиям.
// Запись выполняется атомарно: temp файл → fsync → rename.
package blobstore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// PartitionDateLayout — формат даты партиции.
const PartitionDateLayout = "2006-01-02"

// tokenLength — длина случайного префикса имени файла.
// 6 символов достаточно при ожидаемых масштабах (сотни файлов в день).
const tokenLength = 6

// maxNameLength — ограничение длины очищенного имени файла.
const maxNameLength = 100

// BlobStore — управление blob-файлами в дереве датированных партиций.
type BlobStore struct {
	// root — корневая директория хранения (MB_DATA_DIR)
	root string
}

// WriteResult — результат записи blob на диск.
type WriteResult struct {
	// Path — путь файла относительно корня хранилища
	Path string
	// FullPath — абсолютный путь файла на диске
	FullPath string
	// Size — размер записанных данных в байтах
	Size int64
}

// New создаёт BlobStore. Создаёт корневую директорию, если она
// не существует. Корень нормализуется: хвостовой разделитель в
// конфигурации не должен ломать префиксную проверку в Resolve.
func New(root string) (*BlobStore, error) {
	root = filepath.Clean(root)
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("не удалось создать корневую директорию %s: %w", root, err)
	}
	return &BlobStore{root: root}, nil
}

// Root возвращает путь к корневой директории хранилища.
func (bs *BlobStore) Root() string {
	return bs.root
}

// ValidatePartitionDate проверяет клиентскую дату партиции.
// Значение интерполируется в путь файловой системы, поэтому сначала
// отсекаются разделители путей и сегменты "..", затем выполняется
// строгий разбор формата YYYY-MM-DD с проверкой round-trip.
func ValidatePartitionDate(value string) error {
	if strings.ContainsAny(value, "/\\") || strings.Contains(value, "..") {
		return fmt.Errorf("дата партиции %q содержит недопустимые сегменты пути", value)
	}

	t, err := time.Parse(PartitionDateLayout, value)
	if err != nil {
		return fmt.Errorf("дата партиции %q не соответствует формату YYYY-MM-DD", value)
	}
	if t.Format(PartitionDateLayout) != value {
		return fmt.Errorf("дата партиции %q не соответствует формату YYYY-MM-DD", value)
	}

	return nil
}

// PartitionFor возвращает относительный путь партиции для указанной
// даты, создавая директорию при необходимости. Дата должна быть
// предварительно проверена через ValidatePartitionDate.
func (bs *BlobStore) PartitionFor(date string) (string, error) {
	dir := filepath.Join(bs.root, date)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("не удалось создать партицию %s: %w", date, err)
	}
	return date, nil
}

// AllocateName генерирует устойчивое к коллизиям имя файла:
// {token}-{имя}. Случайный префикс позволяет загружать файлы
// с одинаковыми именами в одну партицию без проверки на диске.
func AllocateName(originalFilename string) string {
	token := uuid.New().String()[:tokenLength]
	return token + "-" + sanitizeFilename(originalFilename)
}

// Write записывает данные из reader в файл партиции.
// Паттерн: temp файл → запись → fsync → atomic rename.
// Контекст ограничивает длительность записи: зависший диск не должен
// блокировать запрос бесконечно. При любой ошибке temp файл удаляется
// и частичный blob не остаётся на диске.
func (bs *BlobStore) Write(ctx context.Context, partition, filename string, reader io.Reader) (*WriteResult, error) {
	relPath := filepath.Join(partition, filename)
	fullPath := filepath.Join(bs.root, relPath)
	tmpPath := fullPath + ".tmp"

	type writeOutcome struct {
		size int64
		err  error
	}
	done := make(chan writeOutcome, 1)

	go func() {
		size, err := writeAtomic(ctx, tmpPath, fullPath, reader)
		done <- writeOutcome{size: size, err: err}
	}()

	select {
	case <-ctx.Done():
		// Зависшая запись могла всё же завершиться после отмены:
		// дожидаемся исхода в фоне и убираем готовый blob, иначе
		// он останется на диске без записи в реестре
		go func() {
			if outcome := <-done; outcome.err == nil {
				os.Remove(fullPath)
			}
		}()
		return nil, fmt.Errorf("запись файла %s прервана: %w", relPath, ctx.Err())
	case outcome := <-done:
		if outcome.err != nil {
			return nil, outcome.err
		}
		return &WriteResult{
			Path:     relPath,
			FullPath: fullPath,
			Size:     outcome.size,
		}, nil
	}
}

// writeAtomic выполняет собственно запись temp → fsync → rename.
// Перед rename проверяется отмена контекста: отменённая запись
// не должна публиковать blob.
func writeAtomic(ctx context.Context, tmpPath, fullPath string, reader io.Reader) (int64, error) {
	f, err := os.Create(tmpPath)
	if err != nil {
		return 0, fmt.Errorf("ошибка создания временного файла: %w", err)
	}

	size, err := io.Copy(f, reader)
	if err != nil {
		f.Close()
		os.Remove(tmpPath)
		return 0, fmt.Errorf("ошибка записи данных: %w", err)
	}

	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return 0, fmt.Errorf("ошибка fsync: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return 0, fmt.Errorf("ошибка закрытия файла: %w", err)
	}

	if err := ctx.Err(); err != nil {
		os.Remove(tmpPath)
		return 0, fmt.Errorf("запись отменена: %w", err)
	}

	if err := os.Rename(tmpPath, fullPath); err != nil {
		os.Remove(tmpPath)
		return 0, fmt.Errorf("ошибка атомарного переименования: %w", err)
	}

	return size, nil
}

// Exists проверяет существование blob-файла.
// relPath — путь относительно корня хранилища.
func (bs *BlobStore) Exists(relPath string) bool {
	full, err := bs.Resolve(relPath)
	if err != nil {
		return false
	}
	info, err := os.Stat(full)
	return err == nil && !info.IsDir()
}

// Remove удаляет blob-файл с диска.
// Возвращает nil, если файл уже не существует.
func (bs *BlobStore) Remove(relPath string) error {
	full, err := bs.Resolve(relPath)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("ошибка удаления файла %s: %w", relPath, err)
	}
	return nil
}

// Open открывает blob-файл для чтения.
// Вызывающий код обязан закрыть файл.
func (bs *BlobStore) Open(relPath string) (*os.File, error) {
	full, err := bs.Resolve(relPath)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(full)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("файл не найден: %s", relPath)
		}
		return nil, fmt.Errorf("ошибка открытия файла %s: %w", relPath, err)
	}
	return f, nil
}

// Resolve преобразует относительный путь в абсолютный, отклоняя
// пути, выходящие за пределы корня хранилища.
func (bs *BlobStore) Resolve(relPath string) (string, error) {
	cleaned := filepath.Clean(filepath.Join(bs.root, relPath))
	if cleaned != bs.root && !strings.HasPrefix(cleaned, bs.root+string(filepath.Separator)) {
		return "", fmt.Errorf("путь %q выходит за пределы корня хранилища", relPath)
	}
	return cleaned, nil
}

// sanitizeFilename очищает клиентское имя файла для безопасного
// использования на диске: берётся базовое имя (клиент может прислать
// путь, в том числе Windows-стиля), убираются небезопасные символы,
// ограничивается длина, расширение сохраняется.
func sanitizeFilename(original string) string {
	base := filepath.Base(strings.ReplaceAll(original, "\\", "/"))
	if base == "." || base == ".." || base == "/" {
		return "file"
	}

	ext := filepath.Ext(base)
	name := sanitize(strings.TrimSuffix(base, ext))

	if len(name) > maxNameLength {
		name = name[:maxNameLength]
	}

	return name + ext
}

// sanitize убирает небезопасные символы из строки для использования
// в имени файла. Оставляет буквы, цифры, дефис и подчёркивание.
func sanitize(s string) string {
	var result strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') || r == '-' || r == '_' ||
			(r >= 0x0400 && r <= 0x04FF) { // Кириллица
			result.WriteRune(r)
		}
	}
	if result.Len() == 0 {
		return "file"
	}
	return result.String()
}
