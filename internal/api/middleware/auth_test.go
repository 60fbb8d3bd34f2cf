package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestBearerAuth(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	auth := NewBearerAuth("secret", logger)

	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := auth.Middleware()(next)

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{"валидный токен", "Bearer secret", http.StatusOK},
		{"регистр схемы не важен", "bearer secret", http.StatusOK},
		{"без заголовка", "", http.StatusUnauthorized},
		{"неверный токен", "Bearer wrong", http.StatusUnauthorized},
		{"неверная схема", "Basic secret", http.StatusUnauthorized},
		{"токен без схемы", "secret", http.StatusUnauthorized},
		{"пустой токен", "Bearer ", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/upload", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("Ожидался статус %d, получено %d", tt.wantStatus, rec.Code)
			}
			if tt.wantStatus == http.StatusUnauthorized && rec.Body.String() != "Unauthorized" {
				t.Errorf("Неверное тело ответа: %q", rec.Body.String())
			}
		})
	}
}
