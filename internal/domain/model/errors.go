package model

import (
	"errors"
	"fmt"
)

// Error categories. Every error returned by the vault, resolver and their
// adapters wraps exactly one of these so callers can branch with errors.Is.
var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrCrypto     = errors.New("credential decryption failed")
	ErrStorage    = errors.New("storage constraint violated")
	ErrUpstream   = errors.New("panel request failed")
)

// Specific errors.
var (
	ErrInvalidLabel       = fmt.Errorf("%w: label not in allowed alphabet", ErrValidation)
	ErrInvalidPanelURL    = fmt.Errorf("%w: invalid panel url", ErrValidation)
	ErrInvalidServerUUID  = fmt.Errorf("%w: malformed server uuid", ErrValidation)
	ErrInvalidAlias       = fmt.Errorf("%w: invalid alias", ErrValidation)
	ErrEmptyToken         = fmt.Errorf("%w: token is empty", ErrValidation)
	ErrCredentialNotFound = fmt.Errorf("credential %w", ErrNotFound)
	ErrServerNotFound     = fmt.Errorf("server %w", ErrNotFound)
	ErrDuplicateLabel     = fmt.Errorf("%w: label already linked for this panel", ErrStorage)
	ErrUnauthorized       = fmt.Errorf("%w: token rejected by panel", ErrUpstream)
)
