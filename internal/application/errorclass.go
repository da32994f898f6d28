package application

import (
	"errors"

	"github.com/ericfisherdev/panelvault/internal/domain/model"
)

// errorClass maps an error onto its taxonomy category for metric labels and logs.
func errorClass(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, model.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, model.ErrValidation):
		return "validation"
	case errors.Is(err, model.ErrNotFound):
		return "not_found"
	case errors.Is(err, model.ErrCrypto):
		return "crypto"
	case errors.Is(err, model.ErrStorage):
		return "storage"
	case errors.Is(err, model.ErrUpstream):
		return "upstream"
	default:
		return "error"
	}
}
