package core

import (
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	NotifyErrorBadInput       = "NOTIFY_BAD_INPUT"
	NotifyErrorNotFound       = "NOTIFY_NOT_FOUND"
	NotifyErrorDeliveryFailed = "NOTIFY_DELIVERY_FAILED"
	NotifyErrorInternal       = "NOTIFY_INTERNAL_ERROR"
)

func notifyErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureNotifyErrorEnvelope(richErr)
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "not found"):
		return newNotifyError(err.Error(), goerrors.CategoryNotFound, NotifyErrorNotFound)
	case strings.Contains(msg, "delivery"), strings.Contains(msg, "webhook"):
		return newNotifyError(err.Error(), goerrors.CategoryOperation, NotifyErrorDeliveryFailed)
	case strings.Contains(msg, "required"), strings.Contains(msg, "invalid"), strings.Contains(msg, "unsupported"):
		return newNotifyError(err.Error(), goerrors.CategoryBadInput, NotifyErrorBadInput)
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureNotifyErrorEnvelope(mapped)
}

func newNotifyError(message string, category goerrors.Category, textCode string) *goerrors.Error {
	return ensureNotifyErrorEnvelope(
		goerrors.New(message, category).
			WithTextCode(textCode),
	)
}

func ensureNotifyErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = notifyHTTPStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultNotifyTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultNotifyTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return NotifyErrorBadInput
	case goerrors.CategoryNotFound:
		return NotifyErrorNotFound
	case goerrors.CategoryOperation, goerrors.CategoryExternal:
		return NotifyErrorDeliveryFailed
	default:
		return NotifyErrorInternal
	}
}

func notifyHTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryConflict:
		return http.StatusConflict
	case goerrors.CategoryOperation, goerrors.CategoryExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
