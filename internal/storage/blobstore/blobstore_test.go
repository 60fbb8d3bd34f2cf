package blobstore

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestValidatePartitionDate(t *testing.T) {
	valid := []string{"2026-08-29", "2000-01-01", "1999-12-31"}
	for _, v := range valid {
		if err := ValidatePartitionDate(v); err != nil {
			t.Errorf("Дата %q должна быть валидной: %v", v, err)
		}
	}

	invalid := []string{
		"",
		"2026-8-29",
		"29-08-2026",
		"2026-13-01",
		"2026-02-30",
		"not-a-date",
		"../etc",
		"2026-08-29/../..",
		"a/b",
		"a\\b",
		"2026-08-29 ",
	}
	for _, v := range invalid {
		if err := ValidatePartitionDate(v); err == nil {
			t.Errorf("Дата %q должна быть отклонена", v)
		}
	}
}

func TestAllocateName(t *testing.T) {
	name := AllocateName("photo.jpg")
	if !strings.HasSuffix(name, "-photo.jpg") {
		t.Errorf("Имя должно заканчиваться на -photo.jpg: %s", name)
	}
	if len(name) != tokenLength+1+len("photo.jpg") {
		t.Errorf("Неверная длина имени: %s", name)
	}

	// Имена уникальны между вызовами
	if AllocateName("photo.jpg") == AllocateName("photo.jpg") {
		t.Error("Два вызова AllocateName вернули одинаковое имя")
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"photo.jpg", "photo.jpg"},
		{"фото.jpg", "фото.jpg"},
		{"my photo (1).jpg", "myphoto1.jpg"},
		{"../../etc/passwd", "passwd"},
		{"/absolute/path/file.png", "file.png"},
		{"C:\\Users\\name\\pic.png", "pic.png"},
		{"<script>.js", "script.js"},
		{"...", "file."},
		{"", "file"},
	}
	for _, tt := range tests {
		if got := sanitizeFilename(tt.in); got != tt.want {
			t.Errorf("sanitizeFilename(%q) = %q, ожидалось %q", tt.in, got, tt.want)
		}
	}
}

func TestSanitizeFilenameCapsLength(t *testing.T) {
	long := strings.Repeat("a", 300) + ".jpg"
	got := sanitizeFilename(long)
	if len(got) > maxNameLength+len(".jpg") {
		t.Errorf("Имя не ограничено по длине: %d символов", len(got))
	}
	if !strings.HasSuffix(got, ".jpg") {
		t.Errorf("Расширение должно сохраняться: %s", got)
	}
}

func TestBlobStoreWrite(t *testing.T) {
	bs, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	partition, err := bs.PartitionFor("2026-08-29")
	if err != nil {
		t.Fatalf("PartitionFor вернул ошибку: %v", err)
	}

	content := "содержимое файла"
	result, err := bs.Write(context.Background(), partition, "abc123-photo.jpg", strings.NewReader(content))
	if err != nil {
		t.Fatalf("Write вернул ошибку: %v", err)
	}

	if result.Path != filepath.Join("2026-08-29", "abc123-photo.jpg") {
		t.Errorf("Неверный относительный путь: %s", result.Path)
	}
	if result.Size != int64(len(content)) {
		t.Errorf("Неверный размер: %d", result.Size)
	}

	data, err := os.ReadFile(result.FullPath)
	if err != nil {
		t.Fatalf("Файл не читается: %v", err)
	}
	if string(data) != content {
		t.Errorf("Содержимое не совпадает: %q", data)
	}

	if !bs.Exists(result.Path) {
		t.Error("Exists должен вернуть true для записанного файла")
	}
}

func TestBlobStoreWriteNoTempLeftover(t *testing.T) {
	root := t.TempDir()
	bs, err := New(root)
	if err != nil {
		t.Fatal(err)
	}

	partition, _ := bs.PartitionFor("2026-08-29")
	if _, err := bs.Write(context.Background(), partition, "a-f.bin", strings.NewReader("data")); err != nil {
		t.Fatal(err)
	}

	entries, err := os.ReadDir(filepath.Join(root, "2026-08-29"))
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Errorf("После записи остался временный файл: %s", e.Name())
		}
	}
}

func TestBlobStoreWriteContextCancelled(t *testing.T) {
	bs, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	partition, _ := bs.PartitionFor("2026-08-29")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Блокирующийся reader: запись не завершится сама
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	defer w.Close()

	_, err = bs.Write(ctx, partition, "a-f.bin", r)
	if err == nil {
		t.Fatal("Ожидалась ошибка при отменённом контексте")
	}
}

func TestBlobStoreWriteCancelledLeavesNoBlob(t *testing.T) {
	root := t.TempDir()
	bs, err := New(root)
	if err != nil {
		t.Fatal(err)
	}
	partition, _ := bs.PartitionFor("2026-08-29")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	if _, err := bs.Write(ctx, partition, "a-late.bin", r); err == nil {
		t.Fatal("Ожидалась ошибка при отменённом контексте")
	}

	// Запись «оживает» уже после отмены и доходит до конца
	if _, err := w.Write([]byte("поздние данные")); err != nil {
		t.Fatal(err)
	}
	w.Close()

	// Ни готовый blob, ни temp файл не должны остаться в партиции
	dir := filepath.Join(root, "2026-08-29")
	deadline := time.Now().Add(2 * time.Second)
	for {
		entries, err := os.ReadDir(dir)
		if err != nil {
			t.Fatal(err)
		}
		if len(entries) == 0 {
			break
		}
		if time.Now().After(deadline) {
			names := make([]string, 0, len(entries))
			for _, e := range entries {
				names = append(names, e.Name())
			}
			t.Fatalf("После отменённой записи остались файлы: %v", names)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestBlobStoreRootTrailingSlash(t *testing.T) {
	bs, err := New(t.TempDir() + string(filepath.Separator))
	if err != nil {
		t.Fatal(err)
	}

	partition, err := bs.PartitionFor("2026-08-29")
	if err != nil {
		t.Fatal(err)
	}

	result, err := bs.Write(context.Background(), partition, "a-f.bin", strings.NewReader("data"))
	if err != nil {
		t.Fatalf("Write вернул ошибку: %v", err)
	}

	if _, err := bs.Resolve(result.Path); err != nil {
		t.Errorf("Resolve отклонил валидный путь при хвостовом разделителе корня: %v", err)
	}
	if !bs.Exists(result.Path) {
		t.Error("Exists должен вернуть true при хвостовом разделителе корня")
	}
}

func TestBlobStoreResolveRejectsTraversal(t *testing.T) {
	bs, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	bad := []string{
		"../outside.txt",
		"2026-08-29/../../outside.txt",
		"..",
	}
	for _, p := range bad {
		if _, err := bs.Resolve(p); err == nil {
			t.Errorf("Путь %q должен быть отклонён", p)
		}
	}

	if _, err := bs.Resolve("2026-08-29/photo.jpg"); err != nil {
		t.Errorf("Валидный путь отклонён: %v", err)
	}
}

func TestBlobStoreRemove(t *testing.T) {
	bs, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	partition, _ := bs.PartitionFor("2026-08-29")

	result, err := bs.Write(context.Background(), partition, "a-f.bin", strings.NewReader("data"))
	if err != nil {
		t.Fatal(err)
	}

	if err := bs.Remove(result.Path); err != nil {
		t.Fatalf("Remove вернул ошибку: %v", err)
	}
	if bs.Exists(result.Path) {
		t.Error("Файл должен быть удалён")
	}

	// Повторное удаление несуществующего файла — не ошибка
	if err := bs.Remove(result.Path); err != nil {
		t.Errorf("Remove несуществующего файла вернул ошибку: %v", err)
	}
}

func TestBlobStoreOpen(t *testing.T) {
	bs, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	partition, _ := bs.PartitionFor("2026-08-29")

	result, err := bs.Write(context.Background(), partition, "a-f.txt", strings.NewReader("hello"))
	if err != nil {
		t.Fatal(err)
	}

	f, err := bs.Open(result.Path)
	if err != nil {
		t.Fatalf("Open вернул ошибку: %v", err)
	}
	f.Close()

	if _, err := bs.Open("2026-08-29/missing.txt"); err == nil {
		t.Error("Ожидалась ошибка для несуществующего файла")
	}
}

func TestBlobStoreWriteTimeout(t *testing.T) {
	bs, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	partition, _ := bs.PartitionFor("2026-08-29")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	defer w.Close()

	start := time.Now()
	_, err = bs.Write(ctx, partition, "a-slow.bin", r)
	if err == nil {
		t.Fatal("Ожидалась ошибка по таймауту")
	}
	if time.Since(start) > 2*time.Second {
		t.Error("Write не прервался по таймауту")
	}
}
