package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dreschagin/qtrack/internal/domain/apperror"
	"github.com/dreschagin/qtrack/internal/domain/entity"
	"github.com/dreschagin/qtrack/internal/domain/valueobject"
	"github.com/dreschagin/qtrack/pkg/logger"
)

var ErrUnauthorized = errors.New("unauthorized")

// UserHeader - заголовок с id действующего пользователя
const UserHeader = "X-User-ID"

type AuthConfig struct {
	Enabled     bool
	BearerToken string

	// Failures считает отказы в доступе; nil - без метрики
	Failures prometheus.Counter
}

// UserLookup находит активного пользователя по id
type UserLookup interface {
	Authenticate(ctx context.Context, id string) (*entity.User, error)
}

type userKey struct{}

// Auth защищает endpoint сервисным Bearer токеном.
func Auth(cfg AuthConfig, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := ValidateRequestAuth(r, cfg); err != nil {
				log.Warn("Unauthorized request",
					"path", r.URL.Path,
					"method", r.Method,
					"remote_addr", r.RemoteAddr,
					"request_id", RequestIDFrom(r.Context()),
				)
				countFailure(cfg.Failures)
				w.Header().Set("WWW-Authenticate", `Bearer realm="qtrack"`)
				writeAuthError(w, http.StatusUnauthorized, "Unauthorized", apperror.KindUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func ValidateRequestAuth(r *http.Request, cfg AuthConfig) error {
	if !cfg.Enabled {
		return nil
	}
	if strings.TrimSpace(cfg.BearerToken) == "" {
		return ErrUnauthorized
	}

	token := ExtractToken(r)
	if token == "" || token != cfg.BearerToken {
		return ErrUnauthorized
	}

	return nil
}

func ExtractToken(r *http.Request) string {
	authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}

	// Браузер не может отправить Authorization header через new WebSocket()
	return strings.TrimSpace(r.URL.Query().Get("token"))
}

// Identify кладет в контекст пользователя из X-User-ID.
// Запрос без заголовка проходит анонимно, неизвестный или деактивированный
// пользователь получает 401.
func Identify(users UserLookup, failures prometheus.Counter, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := strings.TrimSpace(r.Header.Get(UserHeader))
			if userID == "" {
				next.ServeHTTP(w, r)
				return
			}

			user, err := users.Authenticate(r.Context(), userID)
			if err != nil {
				if apperror.Is(err, apperror.KindUnauthorized) {
					log.Warn("Rejected user identity", "user_id", userID, "reason", err.Error())
					countFailure(failures)
					writeAuthError(w, http.StatusUnauthorized, err.Error(), apperror.KindUnauthorized)
					return
				}
				log.Error("Failed to authenticate user", err, "user_id", userID)
				writeAuthError(w, http.StatusInternalServerError, "Internal server error", apperror.KindInternal)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// RequirePermission пропускает только пользователей с правом perm.
// Анонимный запрос уже прошел проверку сервисного токена и считается доверенным.
func RequirePermission(perm valueobject.Permission, failures prometheus.Counter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := UserFrom(r.Context())
			if user != nil && !user.Can(perm) {
				countFailure(failures)
				writeAuthError(w, http.StatusForbidden, "Insufficient permissions", "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func WithUser(ctx context.Context, user *entity.User) context.Context {
	return context.WithValue(ctx, userKey{}, user)
}

// UserFrom возвращает пользователя запроса или nil
func UserFrom(ctx context.Context) *entity.User {
	user, _ := ctx.Value(userKey{}).(*entity.User)
	return user
}

func countFailure(c prometheus.Counter) {
	if c != nil {
		c.Inc()
	}
}

func writeAuthError(w http.ResponseWriter, status int, message string, kind apperror.Kind) {
	WriteJSON(w, status, map[string]string{"error": message, "type": string(kind)})
}

func WriteJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
