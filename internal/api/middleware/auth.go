// auth.go — middleware аутентификации по статическому bearer-токену.
// Токен задаётся в конфигурации сервера (MB_UPLOAD_TOKEN) и сравнивается
// в константное время, чтобы исключить timing-атаки на секрет.
// Публичные endpoints (health, metrics, корень) — без аутентификации.
package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	apierrors "github.com/bigkaa/mediabackup/internal/api/errors"
)

// BearerAuth — middleware проверки статического bearer-токена.
type BearerAuth struct {
	token  []byte
	logger *slog.Logger
}

// NewBearerAuth создаёт middleware аутентификации.
// token — секрет из конфигурации сервера.
func NewBearerAuth(token string, logger *slog.Logger) *BearerAuth {
	return &BearerAuth{
		token:  []byte(token),
		logger: logger.With(slog.String("component", "bearer_auth")),
	}
}

// Middleware возвращает HTTP middleware аутентификации.
// Извлекает Bearer token из заголовка Authorization и сравнивает
// с секретом в константное время. Любое несовпадение → 401.
func (a *BearerAuth) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				apierrors.Unauthorized(w)
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				apierrors.Unauthorized(w)
				return
			}

			presented := []byte(parts[1])
			if subtle.ConstantTimeCompare(presented, a.token) != 1 {
				a.logger.Debug("Аутентификация не пройдена",
					slog.String("remote_addr", r.RemoteAddr),
				)
				apierrors.Unauthorized(w)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
