// Пакет ledger — реестр метаданных загруженных файлов.
//
// Реестр держит полный набор записей FileRecord в памяти и синхронно
// персистирует его через порт Store (полная перезапись документа).
// Источник истины о существовании blob-файлов — файловая система:
// существование проверяется «вживую» через инжектированную функцию,
// реестр его не кэширует.
//
// Все мутирующие операции сериализованы одним write-lock: стратегия
// полной перезаписи не переживёт двух конкурентных сохранений.
package ledger

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/bigkaa/mediabackup/internal/domain/model"
)

// ErrDuplicateRecord — запись с такой парой (имя, размер) уже есть
// в реестре. Возвращается из Append при проигрыше гонки двух
// одинаковых загрузок.
var ErrDuplicateRecord = errors.New("запись с такой парой (имя, размер) уже существует")

// ExistsFunc проверяет существование blob-файла по пути записи
// (относительно корня хранилища).
type ExistsFunc func(path string) bool

// Ledger — потокобезопасный реестр записей о загруженных файлах.
// Чтения конкурентны (RWMutex), последовательность
// «изменение в памяти → персистентность» — под эксклюзивным lock.
type Ledger struct {
	mu      sync.RWMutex
	records []*model.FileRecord
	store   Store
	exists  ExistsFunc
	ready   bool
	logger  *slog.Logger
}

// New создаёт реестр поверх порта персистентности.
// Для заполнения вызовите Load.
func New(store Store, exists ExistsFunc, logger *slog.Logger) *Ledger {
	return &Ledger{
		store:  store,
		exists: exists,
		logger: logger.With(slog.String("component", "ledger")),
	}
}

// Load читает записи из хранилища, удаляет осиротевшие (blob которых
// исчез с диска) и сразу персистирует очищенный набор, чтобы durable
// копия совпадала с in-memory. После успешной загрузки реестр ready.
//
// Ошибка чтения или записи документа → ErrPersistenceUnavailable:
// сервис должен отказаться стартовать, метаданные невосстановимы.
func (l *Ledger) Load() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	records, err := l.store.Load()
	if err != nil {
		return fmt.Errorf("загрузка реестра: %w", err)
	}

	l.records = l.pruneLocked(records)

	// Персистируем очищенный набор сразу, как и оригинальный запуск
	if err := l.store.Save(l.records); err != nil {
		return fmt.Errorf("сохранение реестра после очистки: %w", err)
	}

	l.ready = true

	l.logger.Info("Реестр метаданных загружен",
		slog.Int("records", len(l.records)),
	)

	return nil
}

// pruneLocked возвращает записи, blob которых существует на диске.
// Каждое удаление логируется. Вызывается под write-lock.
func (l *Ledger) pruneLocked(records []*model.FileRecord) []*model.FileRecord {
	kept := records[:0]
	for _, rec := range records {
		if !l.exists(rec.Path) {
			l.logger.Warn("Удалена осиротевшая запись реестра",
				slog.String("id", rec.ID),
				slog.String("path", rec.Path),
			)
			continue
		}
		kept = append(kept, rec)
	}
	return kept
}

// Prune повторяет очистку осиротевших записей по расписанию.
// Персистирует набор только если что-то было удалено.
// Возвращает количество удалённых записей.
func (l *Ledger) Prune() (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	before := len(l.records)
	l.records = l.pruneLocked(l.records)
	removed := before - len(l.records)

	if removed == 0 {
		return 0, nil
	}

	if err := l.store.Save(l.records); err != nil {
		return removed, fmt.Errorf("сохранение реестра после очистки: %w", err)
	}

	return removed, nil
}

// FindDuplicate возвращает первую валидную запись с совпадающей парой
// (оригинальное имя, размер) или nil. Существование blob проверяется
// «вживую»: файловая система могла измениться под ногами.
func (l *Ledger) FindDuplicate(original string, size int64) *model.FileRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for _, rec := range l.records {
		if rec.Matches(original, size) && l.exists(rec.Path) {
			copied := *rec
			return &copied
		}
	}
	return nil
}

// Append добавляет запись и синхронно персистирует полный набор.
// Пара (имя, размер) повторно проверяется под write-lock: между
// FindDuplicate вызывающего и Append конкурентная загрузка могла
// успеть добавить ту же пару. Совпадение → ErrDuplicateRecord,
// вызывающий обязан убрать свой blob.
// При ошибке персистентности запись откатывается из памяти, чтобы
// in-memory состояние не расходилось с durable: вызывающий обязан
// считать запись не сохранённой.
func (l *Ledger) Append(rec *model.FileRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, existing := range l.records {
		if existing.Matches(rec.Original, rec.Size) && l.exists(existing.Path) {
			return fmt.Errorf("%w: %s (%d байт)", ErrDuplicateRecord, rec.Original, rec.Size)
		}
	}

	copied := *rec
	l.records = append(l.records, &copied)

	if err := l.store.Save(l.records); err != nil {
		l.records = l.records[:len(l.records)-1]
		return fmt.Errorf("персистентность записи %s: %w", rec.ID, err)
	}

	return nil
}

// List возвращает копии всех записей, отсортированные по дате
// загрузки (новые первые).
func (l *Ledger) List() []*model.FileRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make([]*model.FileRecord, 0, len(l.records))
	for _, rec := range l.records {
		copied := *rec
		result = append(result, &copied)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].UploadedAt.After(result[j].UploadedAt)
	})

	return result
}

// Count возвращает количество записей в реестре.
func (l *Ledger) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}

// IsReady возвращает true, если реестр загружен и готов к работе.
func (l *Ledger) IsReady() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.ready
}
