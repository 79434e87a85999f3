package core

import (
	"errors"
	"fmt"
)

var (
	ErrSwapchainBooting       = errors.New("swapchain resized or recreated, booting")
	ErrUnsupportedBackend     = errors.New("unsupported renderer backend")
	ErrWindowCreation         = errors.New("window creation failed")
	ErrNoSuitableDevice       = errors.New("no suitable physical device")
	ErrValidationLayerMissing = errors.New("required validation layer is missing")
	ErrDeviceLost             = errors.New("device lost")
	ErrScratchExhausted       = errors.New("uniform scratch buffer exhausted")
	ErrInvalidHandle          = errors.New("invalid handle")
	ErrUnknown                = errors.New("unknown")
)

// InitError is returned by renderer initialisation. It is fatal for the
// renderer instance that produced it.
type InitError struct {
	Reason string
	Err    error
}

func NewInitError(err error, format string, args ...interface{}) *InitError {
	return &InitError{
		Reason: fmt.Sprintf(format, args...),
		Err:    err,
	}
}

func (e *InitError) Error() string {
	if e.Err == nil {
		return "init: " + e.Reason
	}
	return fmt.Sprintf("init: %s: %v", e.Reason, e.Err)
}

func (e *InitError) Unwrap() error {
	return e.Err
}

// ShaderError carries the diagnostic of a failed shader compilation or link.
type ShaderError struct {
	Stage    string
	Message  string
	DebugLog string
}

func (e *ShaderError) Error() string {
	if e.Stage == "" {
		return "shader: " + e.Message
	}
	return fmt.Sprintf("shader (%s): %s", e.Stage, e.Message)
}
