package handler

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dreschagin/qtrack/internal/application/usecase"
	"github.com/dreschagin/qtrack/internal/domain/apperror"
	"github.com/dreschagin/qtrack/pkg/logger"
)

// AttachmentHandler принимает вложения тикетов в JSON (base64) или multipart/form-data
type AttachmentHandler struct {
	attachments     *usecase.AttachmentUseCase
	maxPayloadBytes int64
	logger          *logger.Logger
}

type attachmentRequest struct {
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType"`
	DataBase64  string `json:"dataBase64"`
	UploadedBy  string `json:"uploadedBy"`
}

// NewAttachmentHandler; maxFileBytes - лимит одного файла, тело запроса
// может быть больше на накладные расходы base64 и multipart
func NewAttachmentHandler(attachments *usecase.AttachmentUseCase, maxFileBytes int, log *logger.Logger) *AttachmentHandler {
	if maxFileBytes <= 0 {
		maxFileBytes = 10 * 1024 * 1024
	}
	return &AttachmentHandler{
		attachments:     attachments,
		maxPayloadBytes: int64(maxFileBytes)*4/3 + 64*1024,
		logger:          log,
	}
}

// List - GET /api/tickets/{id}/attachments
func (h *AttachmentHandler) List(w http.ResponseWriter, r *http.Request) {
	if !h.attachments.Enabled() {
		writeMessage(w, http.StatusServiceUnavailable, "Attachment storage is not configured")
		return
	}

	items, err := h.attachments.List(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"attachments": items})
}

// Upload - POST /api/tickets/{id}/attachments
func (h *AttachmentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if !h.attachments.Enabled() {
		writeMessage(w, http.StatusServiceUnavailable, "Attachment storage is not configured")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxPayloadBytes)
	defer r.Body.Close()

	cmd, err := h.readUpload(r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeMessage(w, http.StatusRequestEntityTooLarge, "Payload too large")
			return
		}
		writeError(w, r, h.logger, err)
		return
	}
	cmd.TicketID = chi.URLParam(r, "id")
	cmd.UploadedBy = actorOrHeader(r, cmd.UploadedBy)

	item, err := h.attachments.Upload(r.Context(), cmd)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"attachment": item})
}

func (h *AttachmentHandler) readUpload(r *http.Request) (usecase.UploadAttachmentCommand, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		return h.readMultipart(r)
	}

	var req attachmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return usecase.UploadAttachmentCommand{}, err
		}
		return usecase.UploadAttachmentCommand{}, apperror.Validation("Invalid request body")
	}

	data, err := decodeBase64Payload(req.DataBase64)
	if err != nil {
		return usecase.UploadAttachmentCommand{}, err
	}

	return usecase.UploadAttachmentCommand{
		FileName:    req.FileName,
		ContentType: req.ContentType,
		Data:        data,
		UploadedBy:  req.UploadedBy,
	}, nil
}

func (h *AttachmentHandler) readMultipart(r *http.Request) (usecase.UploadAttachmentCommand, error) {
	if err := r.ParseMultipartForm(h.maxPayloadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return usecase.UploadAttachmentCommand{}, err
		}
		return usecase.UploadAttachmentCommand{}, apperror.Validation("Invalid multipart form")
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return usecase.UploadAttachmentCommand{}, apperror.Validation("File is required")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return usecase.UploadAttachmentCommand{}, apperror.Validation("Failed to read file")
	}

	return usecase.UploadAttachmentCommand{
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
		UploadedBy:  r.FormValue("uploadedBy"),
	}, nil
}

// decodeBase64Payload принимает как голый base64, так и data URL
func decodeBase64Payload(raw string) ([]byte, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, apperror.Validation("dataBase64 is required")
	}

	if strings.HasPrefix(value, "data:") {
		if idx := strings.Index(value, ";base64,"); idx >= 0 {
			value = value[idx+len(";base64,"):]
		}
	}

	decoded, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return nil, apperror.Validation("Invalid base64 data")
	}
	return decoded, nil
}
