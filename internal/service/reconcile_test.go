package service

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"
)

func TestReconcileRunOnceRemovesOrphans(t *testing.T) {
	svc, bs, ldg, store := newTestIngest(t, 0)

	// Две загрузки
	for _, name := range []string{"a.jpg", "b.jpg"} {
		_, ingErr := svc.Ingest(context.Background(), IngestParams{
			Reader:           strings.NewReader(name),
			OriginalFilename: name,
			Size:             int64(len(name)),
		})
		if ingErr != nil {
			t.Fatal(ingErr)
		}
	}

	// Один blob удаляется с диска вручную
	full, err := bs.Resolve(store.records[0].Path)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(full); err != nil {
		t.Fatal(err)
	}

	rec := NewReconcileService(ldg, 0, testLogger())
	rec.RunOnce()

	if ldg.Count() != 1 {
		t.Errorf("Ожидалась 1 запись после сверки, получено %d", ldg.Count())
	}
	if len(store.records) != 1 {
		t.Errorf("Durable копия не очищена: %d записей", len(store.records))
	}
}

func TestReconcileStartDisabled(t *testing.T) {
	_, _, ldg, _ := newTestIngest(t, 0)

	rec := NewReconcileService(ldg, 0, testLogger())
	rec.Start(context.Background())
	// Stop без запущенного цикла не должен блокироваться или паниковать
	rec.Stop()
}

func TestReconcileStartStop(t *testing.T) {
	_, _, ldg, _ := newTestIngest(t, 0)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rec := NewReconcileService(ldg, time.Hour, testLogger())
	rec.Start(ctx)
	rec.Stop()
}
