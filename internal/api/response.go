package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/shaiso/stagegraph/internal/engine"
	"github.com/shaiso/stagegraph/internal/mq"
	"github.com/shaiso/stagegraph/internal/repo"
	"github.com/shaiso/stagegraph/internal/stages"
	"github.com/shaiso/stagegraph/internal/telemetry"
)

// ErrorCode — машинно-читаемый код ошибки.
type ErrorCode string

const (
	ErrCodeBadRequest    ErrorCode = "BAD_REQUEST"
	ErrCodeNotFound      ErrorCode = "NOT_FOUND"
	ErrCodeConflict      ErrorCode = "CONFLICT"
	ErrCodeInvalidState  ErrorCode = "INVALID_STATE"
	ErrCodeUnavailable   ErrorCode = "UNAVAILABLE"
	ErrCodeInternalError ErrorCode = "INTERNAL_ERROR"
)

// ErrorResponse — тело ответа с ошибкой.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail — код и сообщение ошибки.
type ErrorDetail struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// DataResponse — тело успешного ответа.
type DataResponse struct {
	Data any `json:"data"`
}

// ListResponse — тело ответа со списком.
type ListResponse struct {
	Data  any `json:"data"`
	Total int `json:"total"`
}

// JSON пишет data с заданным статусом.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Success — 200 с данными.
func Success(w http.ResponseWriter, data any) { JSON(w, http.StatusOK, DataResponse{Data: data}) }

// Created — 201 с данными.
func Created(w http.ResponseWriter, data any) { JSON(w, http.StatusCreated, DataResponse{Data: data}) }

// Accepted — 202: событие принято, stage обработает orchestrator.
func Accepted(w http.ResponseWriter, data any) {
	JSON(w, http.StatusAccepted, DataResponse{Data: data})
}

// List — 200 со списком.
func List(w http.ResponseWriter, data any, total int) {
	JSON(w, http.StatusOK, ListResponse{Data: data, Total: total})
}

// BadRequest — 400.
func BadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// InvalidState — 422.
func InvalidState(w http.ResponseWriter, message string) {
	writeError(w, http.StatusUnprocessableEntity, ErrCodeInvalidState, message)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	JSON(w, status, ErrorResponse{Error: ErrorDetail{Code: code, Message: message}})
}

// HandleError пишет ответ для err и возвращает true; для nil — false.
//
//	repo.ErrNotFound               → 404 (notFoundMsg)
//	repo.ErrAlreadyExists          → 409
//	stages.ErrStageNotFound        → 422 (тип stage не зарегистрирован)
//	engine.ValidationError, JSON   → 400
//	mq.ErrNoPublisher              → 503
//	остальное                      → 500, ошибка логируется
func HandleError(w http.ResponseWriter, r *http.Request, err error, notFoundMsg string) bool {
	if err == nil {
		return false
	}

	var ve *engine.ValidationError
	switch {
	case errors.Is(err, repo.ErrNotFound):
		writeError(w, http.StatusNotFound, ErrCodeNotFound, notFoundMsg)
	case errors.Is(err, repo.ErrAlreadyExists):
		writeError(w, http.StatusConflict, ErrCodeConflict, err.Error())
	case errors.Is(err, stages.ErrStageNotFound):
		InvalidState(w, err.Error())
	case errors.As(err, &ve), errors.Is(err, engine.ErrInvalidStageJSON):
		BadRequest(w, err.Error())
	case errors.Is(err, mq.ErrNoPublisher):
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "event transport is not configured")
	default:
		telemetry.FromContext(r.Context()).Error("internal error", "error", err)
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, "internal server error")
	}
	return true
}
