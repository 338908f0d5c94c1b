package models

import (
	"errors"
	"fmt"
)

// Error kinds for structured error handling.
const (
	ErrKindConfig     = "CONFIG_ERROR"
	ErrKindDiscovery  = "DISCOVERY_ERROR"
	ErrKindContainer  = "CONTAINER_ERROR"
	ErrKindRead       = "READ_ERROR"
	ErrKindTranscode  = "TRANSCODE_ERROR"
	ErrKindCache      = "CACHE_ERROR"
	ErrKindState      = "STATE_ERROR"
	ErrKindExport     = "EXPORT_ERROR"
	ErrKindPreviewBig = "PREVIEW_TOO_LARGE"
)

// Sentinel errors
var (
	ErrUnknownScan      = errors.New("unknown scan id")
	ErrUnknownAsset     = errors.New("unknown asset id")
	ErrUnknownOperation = errors.New("unknown operation id")
	ErrUnknownNode      = errors.New("unknown tree node id")
	ErrScanInProgress   = errors.New("scan already in progress")
	ErrExportInProgress = errors.New("export already in progress")
	ErrNoIndex          = errors.New("no completed scan for this session")
	ErrPreviewTooLarge  = errors.New("asset exceeds the preview size limit")
	ErrNoPrismRoot      = errors.New("no valid launcher root found")
	ErrInstanceNotFound = errors.New("instance not found")
)

// AppError carries a stable kind alongside a human message and the
// wrapped cause. Kinds survive serialization to the command surface.
type AppError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewError builds an AppError without a cause.
func NewError(kind, message string) *AppError {
	return &AppError{Kind: kind, Message: message}
}

// Errorf builds an AppError with a formatted message.
func Errorf(kind, format string, args ...any) *AppError {
	return &AppError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapError attaches a kind and message to an underlying cause.
func WrapError(kind, message string, err error) *AppError {
	return &AppError{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the error kind, defaulting to STATE_ERROR for plain
// errors so every failure crossing the command surface carries a kind.
func KindOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	if errors.Is(err, ErrPreviewTooLarge) {
		return ErrKindPreviewBig
	}
	return ErrKindState
}
