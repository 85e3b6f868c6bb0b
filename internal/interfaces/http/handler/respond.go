package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/dreschagin/qtrack/internal/domain/apperror"
	"github.com/dreschagin/qtrack/internal/interfaces/http/middleware"
	"github.com/dreschagin/qtrack/pkg/logger"
)

// maxBodyBytes ограничивает JSON тела запросов (вложения идут отдельным лимитом)
const maxBodyBytes = 1 << 20

var errEmptyBody = errors.New("empty body")

// errorBody - формат ошибки во всех ответах API
type errorBody struct {
	Error string `json:"error"`
	Type  string `json:"type,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	middleware.WriteJSON(w, status, payload)
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorBody{Error: message})
}

// writeError отображает ошибку use case в HTTP статус.
// Неклассифицированные ошибки логируются и отдаются как 500 без деталей.
func writeError(w http.ResponseWriter, r *http.Request, log *logger.Logger, err error) {
	kind := apperror.KindOf(err)

	var status int
	switch kind {
	case apperror.KindValidation:
		status = http.StatusBadRequest
	case apperror.KindNotFound:
		status = http.StatusNotFound
	case apperror.KindConflict:
		status = http.StatusConflict
	case apperror.KindUnauthorized:
		status = http.StatusUnauthorized
	default:
		log.Error("Request failed", err,
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", middleware.RequestIDFrom(r.Context()),
		)
		writeJSON(w, http.StatusInternalServerError, errorBody{
			Error: "Internal server error",
			Type:  string(apperror.KindInternal),
		})
		return
	}

	var appErr *apperror.Error
	message := err.Error()
	if errors.As(err, &appErr) {
		message = appErr.Message
	}
	writeJSON(w, status, errorBody{Error: message, Type: string(kind)})
}

// decodeJSON читает тело запроса в dst с ограничением размера
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return err
	}
	return nil
}

// decodeOrReject декодирует тело и сам отвечает 400 при ошибке
func decodeOrReject(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := decodeJSON(w, r, dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{
			Error: "Invalid request body",
			Type:  string(apperror.KindValidation),
		})
		return false
	}
	return true
}

// actorOrHeader возвращает пользователя из тела, либо из контекста аутентификации
func actorOrHeader(r *http.Request, fromBody string) string {
	if actor := strings.TrimSpace(fromBody); actor != "" {
		return actor
	}
	if user := middleware.UserFrom(r.Context()); user != nil {
		return user.ID
	}
	return ""
}

func queryBool(r *http.Request, key string) (*bool, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, apperror.Validation("Invalid %s parameter", key)
	}
	return &v, nil
}
