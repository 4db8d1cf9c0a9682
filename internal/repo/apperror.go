package repo

import (
	"errors"
	"net/http"

	"github.com/noah-isme/backend-electronic/internal/common"
)

// AppError translates repository sentinels into API errors for resource.
// Other errors pass through unchanged.
func AppError(err error, resource string) error {
	switch {
	case err == nil:
		return nil
	case common.IsAppError(err):
		return err
	case errors.Is(err, ErrNotFound):
		return common.NotFound(resource)
	case errors.Is(err, ErrConflict):
		return common.NewAppError(common.CodeConflict, resource+" already exists", http.StatusConflict, err)
	case errors.Is(err, ErrInUse):
		return common.NewAppError("RESOURCE_IN_USE", resource+" is still referenced", http.StatusConflict, err)
	case errors.Is(err, ErrInvalidReference):
		return common.NewAppError(common.CodeValidation, "referenced resource does not exist", http.StatusBadRequest, err)
	case errors.Is(err, ErrInsufficientStock):
		return common.NewAppError("INSUFFICIENT_STOCK", "not enough stock", http.StatusConflict, err)
	case errors.Is(err, ErrUnknownRole):
		return common.NewAppError(common.CodeValidation, "unknown role", http.StatusBadRequest, err)
	}
	return err
}
