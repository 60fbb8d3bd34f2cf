// Пакет service — бизнес-логика сервиса резервного копирования.
// ingest.go — конвейер приёма одной загрузки: валидация → проверка
// дубликата → запись blob → запись в реестр.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/bigkaa/mediabackup/internal/api/middleware"
	"github.com/bigkaa/mediabackup/internal/domain/model"
	"github.com/bigkaa/mediabackup/internal/storage/blobstore"
	"github.com/bigkaa/mediabackup/internal/storage/ledger"
)

// Stage — этап конвейера приёма, на котором произошёл отказ.
// Конвейер: Received → Validated → DuplicateCheck →
// {Skipped | Writing → Written → Recording → Recorded} → Acknowledged.
type Stage string

const (
	// StageValidate — отказ валидации входных данных (вина клиента).
	StageValidate Stage = "validate"
	// StageWrite — отказ записи blob на диск; в реестре ничего нет.
	StageWrite Stage = "write"
	// StageRecord — отказ персистентности реестра; blob уже был на
	// диске и удаляется компенсацией.
	StageRecord Stage = "record"
)

// Outcome — результат успешного прохождения конвейера.
type Outcome string

const (
	// OutcomeStored — файл сохранён и записан в реестр.
	OutcomeStored Outcome = "stored"
	// OutcomeDuplicate — дубликат пропущен: ничего не записано,
	// это штатный no-op, а не ошибка.
	OutcomeDuplicate Outcome = "duplicate"
)

// IngestParams — параметры одной загрузки.
type IngestParams struct {
	// Reader — поток данных файла
	Reader io.Reader
	// OriginalFilename — оригинальное имя файла
	OriginalFilename string
	// Size — размер файла (из multipart part)
	Size int64
	// CreatedAt — клиентская дата партиции YYYY-MM-DD (опционально).
	// Пустая строка — используется текущая дата сервера.
	CreatedAt string
}

// IngestResult — результат приёма загрузки.
type IngestResult struct {
	Outcome Outcome
	// Record — созданная запись (nil для OutcomeDuplicate)
	Record *model.FileRecord
}

// IngestError — отказ конвейера с этапом и HTTP-кодом.
type IngestError struct {
	Stage      Stage
	StatusCode int
	Message    string
	Err        error
}

func (e *IngestError) Error() string {
	return fmt.Sprintf("%s: %s", e.Stage, e.Message)
}

func (e *IngestError) Unwrap() error {
	return e.Err
}

// IngestService — конвейер приёма загрузок.
type IngestService struct {
	store       *blobstore.BlobStore
	ldg         *ledger.Ledger
	maxFileSize int64
	ioTimeout   time.Duration
	logger      *slog.Logger
}

// NewIngestService создаёт конвейер приёма загрузок.
func NewIngestService(
	store *blobstore.BlobStore,
	ldg *ledger.Ledger,
	maxFileSize int64,
	ioTimeout time.Duration,
	logger *slog.Logger,
) *IngestService {
	return &IngestService{
		store:       store,
		ldg:         ldg,
		maxFileSize: maxFileSize,
		ioTimeout:   ioTimeout,
		logger:      logger.With(slog.String("component", "ingest_service")),
	}
}

// Ingest проводит одну загрузку через конвейер.
//
// Поток:
//  1. Валидация payload и даты партиции
//  2. Проверка дубликата по паре (имя, размер) — при совпадении skip
//  3. Партиция + генерация имени + запись blob (атомарно, с таймаутом)
//  4. Запись в реестр с синхронной персистентностью
//
// При отказе персистентности реестра только что записанный blob
// удаляется: байты без метаданных не должны оставаться на диске.
func (s *IngestService) Ingest(ctx context.Context, params IngestParams) (*IngestResult, *IngestError) {
	// 1. Валидация payload
	if params.Reader == nil {
		return nil, &IngestError{
			Stage:      StageValidate,
			StatusCode: http.StatusBadRequest,
			Message:    "No file uploaded.",
		}
	}

	if s.maxFileSize > 0 && params.Size > s.maxFileSize {
		return nil, &IngestError{
			Stage:      StageValidate,
			StatusCode: http.StatusRequestEntityTooLarge,
			Message:    fmt.Sprintf("File size %d exceeds limit %d", params.Size, s.maxFileSize),
		}
	}

	// 2. Дата партиции: клиентская (проверенная) или текущая
	partitionDate := params.CreatedAt
	if partitionDate == "" {
		partitionDate = time.Now().UTC().Format(blobstore.PartitionDateLayout)
	} else if err := blobstore.ValidatePartitionDate(partitionDate); err != nil {
		s.logger.Warn("Отклонена недопустимая дата партиции",
			slog.String("created_at", params.CreatedAt),
			slog.String("filename", params.OriginalFilename),
		)
		return nil, &IngestError{
			Stage:      StageValidate,
			StatusCode: http.StatusBadRequest,
			Message:    "Invalid createdAt date",
			Err:        err,
		}
	}

	// 3. Проверка дубликата: совпадение (имя, размер) — штатный skip,
	// байты не пишутся, запись не создаётся
	if dup := s.ldg.FindDuplicate(params.OriginalFilename, params.Size); dup != nil {
		middleware.IngestTotal.WithLabelValues(string(OutcomeDuplicate)).Inc()
		s.logger.Info("Дубликат пропущен",
			slog.String("filename", params.OriginalFilename),
			slog.Int64("size", params.Size),
			slog.String("existing_id", dup.ID),
		)
		return &IngestResult{Outcome: OutcomeDuplicate}, nil
	}

	// 4. Партиция
	partition, err := s.store.PartitionFor(partitionDate)
	if err != nil {
		middleware.IngestTotal.WithLabelValues("error").Inc()
		s.logger.Error("Ошибка создания партиции",
			slog.String("date", partitionDate),
			slog.String("error", err.Error()),
		)
		return nil, &IngestError{
			Stage:      StageWrite,
			StatusCode: http.StatusInternalServerError,
			Message:    "Failed to store file",
			Err:        err,
		}
	}

	// 5. Запись blob с ограничением по времени
	writeCtx, cancel := context.WithTimeout(ctx, s.ioTimeout)
	defer cancel()

	filename := blobstore.AllocateName(params.OriginalFilename)
	saved, err := s.store.Write(writeCtx, partition, filename, params.Reader)
	if err != nil {
		middleware.IngestTotal.WithLabelValues("error").Inc()
		s.logger.Error("Ошибка записи файла",
			slog.String("filename", params.OriginalFilename),
			slog.String("error", err.Error()),
		)
		return nil, &IngestError{
			Stage:      StageWrite,
			StatusCode: http.StatusInternalServerError,
			Message:    "Failed to store file",
			Err:        err,
		}
	}

	// 6. Запись в реестр
	record := &model.FileRecord{
		ID:         uuid.New().String(),
		Original:   params.OriginalFilename,
		Path:       saved.Path,
		Size:       saved.Size,
		UploadedAt: time.Now().UTC(),
	}

	if err := s.ldg.Append(record); err != nil {
		// Компенсация: удаляем осиротевший blob, чтобы байты без
		// метаданных не оставались на диске
		if rmErr := s.store.Remove(saved.Path); rmErr != nil {
			s.logger.Error("Ошибка удаления осиротевшего файла",
				slog.String("path", saved.Path),
				slog.String("error", rmErr.Error()),
			)
		}

		// Конкурентная загрузка той же пары успела записаться первой:
		// наш blob уже убран, отчитываемся как о штатном дубликате
		if errors.Is(err, ledger.ErrDuplicateRecord) {
			middleware.IngestTotal.WithLabelValues(string(OutcomeDuplicate)).Inc()
			s.logger.Info("Дубликат пропущен",
				slog.String("filename", params.OriginalFilename),
				slog.Int64("size", params.Size),
			)
			return &IngestResult{Outcome: OutcomeDuplicate}, nil
		}

		middleware.IngestTotal.WithLabelValues("error").Inc()
		s.logger.Error("Ошибка персистентности реестра",
			slog.String("id", record.ID),
			slog.String("filename", params.OriginalFilename),
			slog.String("error", err.Error()),
		)
		return nil, &IngestError{
			Stage:      StageRecord,
			StatusCode: http.StatusServiceUnavailable,
			Message:    "Failed to record file",
			Err:        err,
		}
	}

	// 7. Метрики
	middleware.IngestTotal.WithLabelValues(string(OutcomeStored)).Inc()
	middleware.FilesTotal.Set(float64(s.ldg.Count()))

	s.logger.Info("Файл загружен",
		slog.String("id", record.ID),
		slog.String("filename", params.OriginalFilename),
		slog.String("path", saved.Path),
		slog.Int64("size", saved.Size),
	)

	return &IngestResult{Outcome: OutcomeStored, Record: record}, nil
}
