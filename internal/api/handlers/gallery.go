// gallery.go — HTML-галерея загруженных файлов, сгруппированных по дате.
package handlers

import (
	"embed"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"path/filepath"
	"sort"
	"strings"

	apierrors "github.com/bigkaa/mediabackup/internal/api/errors"
	"github.com/bigkaa/mediabackup/internal/storage/blobstore"
)

//go:embed templates/gallery.html
var galleryFS embed.FS

var galleryTmpl = template.Must(template.ParseFS(galleryFS, "templates/gallery.html"))

// imageExtensions и videoExtensions определяют способ отображения
// элемента галереи. Остальные типы показываются ссылкой.
var imageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true,
	".webp": true, ".bmp": true, ".heic": true,
}

var videoExtensions = map[string]bool{
	".mp4": true, ".mov": true, ".webm": true, ".avi": true, ".mkv": true,
}

// galleryItem — один элемент галереи.
type galleryItem struct {
	URL     string
	Name    string
	IsImage bool
	IsVideo bool
}

// galleryGroup — группа элементов одной даты.
type galleryGroup struct {
	Date  string
	Items []galleryItem
}

// galleryData — данные шаблона галереи.
type galleryData struct {
	Groups []galleryGroup
	Total  int
}

// GalleryHandler обрабатывает GET /gallery.
//
// Рендерит HTML-страницу со всеми записями реестра, сгруппированными
// по дате партиции (новые даты первые, внутри даты новые загрузки
// первые). Изображения и видео встраиваются, прочее — ссылками.
func (h *Handler) GalleryHandler(w http.ResponseWriter, r *http.Request) {
	records := h.ldg.List()

	var groups []galleryGroup
	index := make(map[string]int)

	for _, rec := range records {
		date := partitionDateOf(rec.Path)
		if date == "" {
			date = rec.UploadedAt.Format(blobstore.PartitionDateLayout)
		}

		item := galleryItem{
			URL:     fileURL(rec.Path),
			Name:    rec.Original,
			IsImage: imageExtensions[strings.ToLower(filepath.Ext(rec.Path))],
			IsVideo: videoExtensions[strings.ToLower(filepath.Ext(rec.Path))],
		}

		i, ok := index[date]
		if !ok {
			groups = append(groups, galleryGroup{Date: date})
			i = len(groups) - 1
			index[date] = i
		}
		groups[i].Items = append(groups[i].Items, item)
	}

	// Новые даты первые. Порядок обхода записей здесь не помогает:
	// свежая загрузка с клиентской датой относится к старой партиции.
	// Формат YYYY-MM-DD сортируется лексикографически.
	sort.Slice(groups, func(i, j int) bool {
		return groups[i].Date > groups[j].Date
	})

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := galleryTmpl.Execute(w, galleryData{Groups: groups, Total: len(records)}); err != nil {
		h.logger.Error("Ошибка рендеринга галереи",
			slog.String("error", err.Error()),
		)
		apierrors.InternalError(w, "Failed to render gallery")
	}
}

// partitionDateOf извлекает дату партиции из относительного пути записи
// (первый сегмент: 2026-08-29/abc123-photo.jpg). Пустая строка, если
// путь не содержит партиции.
func partitionDateOf(relPath string) string {
	dir := filepath.ToSlash(filepath.Dir(relPath))
	if dir == "." || dir == "/" {
		return ""
	}
	// На случай вложенных сегментов берём первый
	if i := strings.IndexByte(dir, '/'); i >= 0 {
		dir = dir[:i]
	}
	if blobstore.ValidatePartitionDate(dir) != nil {
		return ""
	}
	return dir
}

// fileURL строит URL раздачи файла с экранированием сегментов пути.
func fileURL(relPath string) string {
	u := url.URL{Path: "/file/" + filepath.ToSlash(relPath)}
	return u.String()
}
