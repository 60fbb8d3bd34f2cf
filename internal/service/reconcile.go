// reconcile.go — фоновая сверка реестра с содержимым диска.
// Периодически удаляет из реестра записи, чей blob исчез с диска
// (ручное удаление, потеря тома). Blob без записи не трогается.
package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/mediabackup/internal/api/middleware"
	"github.com/bigkaa/mediabackup/internal/storage/ledger"
)

// Метрики сверки
var (
	// reconcileRunsTotal — количество запусков сверки по результату.
	reconcileRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mb_reconcile_runs_total",
			Help: "Общее количество запусков сверки реестра с диском",
		},
		[]string{"result"},
	)

	// reconcileOrphansRemoved — количество удалённых осиротевших записей.
	reconcileOrphansRemoved = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mb_reconcile_orphans_removed_total",
			Help: "Общее количество удалённых осиротевших записей реестра",
		},
	)

	// reconcileDuration — гистограмма длительности сверки.
	reconcileDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mb_reconcile_duration_seconds",
			Help:    "Длительность одного прохода сверки в секундах",
			Buckets: prometheus.DefBuckets,
		},
	)
)

// ReconcileService — фоновый процесс сверки реестра с диском.
type ReconcileService struct {
	ldg      *ledger.Ledger
	interval time.Duration
	logger   *slog.Logger

	// runMu защищает от наложения проходов сверки
	runMu  sync.Mutex
	stopCh chan struct{}
	doneCh chan struct{}
}

// NewReconcileService создаёт сервис сверки.
// interval — период между проходами; 0 отключает фоновый запуск
// (RunOnce остаётся доступным).
func NewReconcileService(ldg *ledger.Ledger, interval time.Duration, logger *slog.Logger) *ReconcileService {
	return &ReconcileService{
		ldg:      ldg,
		interval: interval,
		logger:   logger.With(slog.String("component", "reconcile_service")),
	}
}

// Start запускает фоновый цикл сверки.
// При interval == 0 цикл не запускается.
func (s *ReconcileService) Start(ctx context.Context) {
	if s.interval <= 0 {
		s.logger.Info("Фоновая сверка отключена")
		return
	}

	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})

	go s.run(ctx)

	s.logger.Info("Фоновая сверка запущена",
		slog.Duration("interval", s.interval),
	)
}

// Stop останавливает фоновый цикл и дожидается завершения текущего прохода.
func (s *ReconcileService) Stop() {
	if s.stopCh == nil {
		return
	}
	close(s.stopCh)
	<-s.doneCh
	s.logger.Info("Фоновая сверка остановлена")
}

func (s *ReconcileService) run(ctx context.Context) {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.RunOnce()
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		}
	}
}

// RunOnce выполняет один проход сверки.
// Проходы не накладываются: повторный вызов ждёт завершения текущего.
func (s *ReconcileService) RunOnce() {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	start := time.Now()

	removed, err := s.ldg.Prune()

	reconcileDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		reconcileRunsTotal.WithLabelValues("error").Inc()
		s.logger.Error("Ошибка сверки реестра",
			slog.String("error", err.Error()),
		)
		return
	}

	reconcileRunsTotal.WithLabelValues("success").Inc()
	if removed > 0 {
		reconcileOrphansRemoved.Add(float64(removed))
		middleware.FilesTotal.Set(float64(s.ldg.Count()))
		s.logger.Info("Сверка завершена",
			slog.Int("orphans_removed", removed),
			slog.Duration("duration", time.Since(start)),
		)
		return
	}

	s.logger.Debug("Сверка завершена, расхождений нет",
		slog.Duration("duration", time.Since(start)),
	)
}
