package httpapi

import (
	stderrors "errors"

	"github.com/gin-gonic/gin"

	"signalstore/internal/engine"
	"signalstore/internal/storage"
	apperrors "signalstore/pkg/errors"
)

// mapError translates an engine/storage failure into the AppError shape
// the teacher's handlers respond with, so every endpoint returns the same
// {"type", "message", "details"} envelope regardless of which layer
// rejected the request.
func mapError(err error) *apperrors.AppError {
	var appErr *apperrors.AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}

	var insertErr *engine.InsertError
	if stderrors.As(err, &insertErr) {
		switch insertErr.Kind {
		case engine.DuplicateSpanID:
			return apperrors.NewConflictError(insertErr.Error())
		case engine.InvalidSpanIDKind:
			return apperrors.NewValidationError(insertErr.Error(), "")
		case engine.UnknownSpanID:
			return apperrors.NewNotFoundError("span")
		default:
			return apperrors.NewBadRequestError(insertErr.Error(), "")
		}
	}

	var notFound *storage.ErrNotFound
	if stderrors.As(err, &notFound) {
		return apperrors.NewNotFoundError(notFound.Kind)
	}

	var engineErr *engine.EngineError
	if stderrors.As(err, &engineErr) {
		if engineErr.Code == "parse_error" {
			return apperrors.NewValidationError(engineErr.Message, errString(engineErr.Cause))
		}
		return apperrors.NewInternalError(engineErr.Message, engineErr.Cause)
	}

	return apperrors.NewInternalError("unexpected error", err)
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// respondError writes err as a JSON AppError body with the matching HTTP
// status, aborting the gin context so no handler writes a second response.
func respondError(c *gin.Context, err error) {
	appErr := mapError(err)
	c.AbortWithStatusJSON(appErr.StatusCode, appErr)
}
