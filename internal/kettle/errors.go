package kettle

import (
	"errors"
	"fmt"
	"strings"
)

// Error types for kettle operations

// ErrorType represents the category of error that occurred
type ErrorType int

const (
	// ErrTypeTransport indicates a link-layer fault; the connection is dropped and retried at once
	ErrTypeTransport ErrorType = iota
	// ErrTypeTimeout indicates no notification arrived within the wait bound
	ErrTypeTimeout
	// ErrTypeMalformedFrame indicates a payload that could not be decoded
	ErrTypeMalformedFrame
	// ErrTypeAuthMismatch indicates the kettle's verify value disagreed with the session token
	ErrTypeAuthMismatch
	// ErrTypeNoData indicates the status cache is empty after exhausting retries
	ErrTypeNoData
	// ErrTypeMissingCharacteristic indicates a characteristic read returned nothing
	ErrTypeMissingCharacteristic
	// ErrTypeUnrecognizedNotification indicates a notification on an unexpected handle
	ErrTypeUnrecognizedNotification
	// ErrTypeValidation indicates an invalid argument supplied by the caller
	ErrTypeValidation
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeTransport:
		return "Transport Fault"
	case ErrTypeTimeout:
		return "Timeout"
	case ErrTypeMalformedFrame:
		return "Malformed Frame"
	case ErrTypeAuthMismatch:
		return "Authentication Mismatch"
	case ErrTypeNoData:
		return "No Data"
	case ErrTypeMissingCharacteristic:
		return "Missing Characteristic"
	case ErrTypeUnrecognizedNotification:
		return "Unrecognized Notification"
	case ErrTypeValidation:
		return "Validation Error"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// KettleError represents an error that occurred while talking to a kettle
type KettleError struct {
	Type      ErrorType // Category of error
	Message   string    // Human-readable error message
	Address   string    // Device MAC address (for context)
	Handle    Handle    // Characteristic handle (if applicable)
	Err       error     // Underlying error (if any)
	Retryable bool      // Whether the fill loop may try again
}

// Error implements the error interface
func (e *KettleError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for error chain inspection
func (e *KettleError) Unwrap() error {
	return e.Err
}

// NewTransportError wraps a link-layer failure reported by a Transport
func NewTransportError(message string, err error) *KettleError {
	return &KettleError{
		Type:      ErrTypeTransport,
		Message:   message,
		Err:       err,
		Retryable: true,
	}
}

// NewTimeoutError creates a timeout error for a notification wait
func NewTimeoutError(message string) *KettleError {
	return &KettleError{
		Type:      ErrTypeTimeout,
		Message:   message,
		Retryable: true,
	}
}

// NewMalformedFrameError creates a decode error
func NewMalformedFrameError(message string) *KettleError {
	return &KettleError{
		Type:      ErrTypeMalformedFrame,
		Message:   message,
		Retryable: true,
	}
}

// NewAuthMismatchError creates an authentication error for the given device
func NewAuthMismatchError(address string) *KettleError {
	return &KettleError{
		Type:      ErrTypeAuthMismatch,
		Message:   "authentication failed: device response does not match session token",
		Address:   address,
		Handle:    HandleAuth,
		Retryable: true,
	}
}

// NewNoDataError creates the terminal error returned when the cache is empty
func NewNoDataError(address string) *KettleError {
	return &KettleError{
		Type:    ErrTypeNoData,
		Message: fmt.Sprintf("could not read data from Mi Kettle %s", address),
		Address: address,
	}
}

// NewMissingCharacteristicError reports an empty read of a named characteristic
func NewMissingCharacteristicError(name string, handle Handle, address string) *KettleError {
	return &KettleError{
		Type:    ErrTypeMissingCharacteristic,
		Message: fmt.Sprintf("could not read %s using handle %d from Mi Kettle %s", name, handle, address),
		Address: address,
		Handle:  handle,
	}
}

// NewUnrecognizedNotificationError describes a notification nobody was waiting for
func NewUnrecognizedNotificationError(handle Handle) *KettleError {
	return &KettleError{
		Type:    ErrTypeUnrecognizedNotification,
		Message: fmt.Sprintf("unknown notification from handle %d", handle),
		Handle:  handle,
	}
}

// NewValidationError creates a validation error
func NewValidationError(message string) *KettleError {
	return &KettleError{
		Type:    ErrTypeValidation,
		Message: message,
	}
}

func errorType(err error) (ErrorType, bool) {
	var ke *KettleError
	if errors.As(err, &ke) {
		return ke.Type, true
	}
	return 0, false
}

func isType(err error, t ErrorType) bool {
	got, ok := errorType(err)
	return ok && got == t
}

// IsTransportFault checks if an error is a link-layer fault
func IsTransportFault(err error) bool {
	return isType(err, ErrTypeTransport)
}

// IsTimeout checks if an error is a notification timeout
func IsTimeout(err error) bool {
	return isType(err, ErrTypeTimeout)
}

// IsMalformedFrame checks if an error is a decode failure
func IsMalformedFrame(err error) bool {
	return isType(err, ErrTypeMalformedFrame)
}

// IsAuthMismatch checks if an error is an authentication mismatch
func IsAuthMismatch(err error) bool {
	return isType(err, ErrTypeAuthMismatch)
}

// IsNoData checks if an error reports an empty cache
func IsNoData(err error) bool {
	return isType(err, ErrTypeNoData)
}

// IsMissingCharacteristic checks if an error reports an empty characteristic read
func IsMissingCharacteristic(err error) bool {
	return isType(err, ErrTypeMissingCharacteristic)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return isType(err, ErrTypeValidation)
}

// IsRetryable checks if the fill loop should try again after err
func IsRetryable(err error) bool {
	var ke *KettleError
	if errors.As(err, &ke) {
		return ke.Retryable
	}
	// Errors a transport did not classify still count against the retry budget
	return err != nil
}

// TroubleshootingHint returns user-friendly troubleshooting advice for an error
func TroubleshootingHint(err error) string {
	t, ok := errorType(err)
	if !ok {
		return "An unexpected error occurred. Please try again."
	}

	switch t {
	case ErrTypeTransport:
		return strings.Join([]string{
			"The Bluetooth link to the kettle failed.",
			"Troubleshooting:",
			"  • Check that the Bluetooth adapter is powered on",
			"  • Move closer to the kettle",
			"  • Make sure no phone app is connected to the kettle at the same time",
		}, "\n")

	case ErrTypeTimeout:
		return strings.Join([]string{
			"The kettle did not send a notification in time.",
			"Troubleshooting:",
			"  • Check that the kettle base is plugged in",
			"  • Try increasing the notification timeout",
		}, "\n")

	case ErrTypeAuthMismatch:
		return strings.Join([]string{
			"The kettle rejected the handshake.",
			"Troubleshooting:",
			"  • Verify the product id (printed on the base, e.g. 275)",
			"  • Verify the MAC address",
			"  • The kettle may be bound to a different token; re-pair it in the Mi Home app",
		}, "\n")

	case ErrTypeNoData:
		return strings.Join([]string{
			"No status has been received from the kettle yet.",
			"After repeated failures the client waits 5 minutes before trying again.",
			"Use --fresh to force a new attempt.",
		}, "\n")

	case ErrTypeMalformedFrame:
		return "The kettle sent a status frame that could not be decoded. This may indicate an unsupported firmware."

	case ErrTypeMissingCharacteristic:
		return "The kettle returned an empty value. It may not support this characteristic."

	case ErrTypeValidation:
		return "The supplied values are invalid. Check the error message for details."

	default:
		return "An error occurred. Please check the error message for details."
	}
}

// ShortErrorMessage returns a concise, user-friendly error message
func ShortErrorMessage(err error) string {
	var ke *KettleError
	if !errors.As(err, &ke) {
		return err.Error()
	}

	switch ke.Type {
	case ErrTypeTransport:
		return "Bluetooth link failed"
	case ErrTypeTimeout:
		return "Kettle not responding (timeout)"
	case ErrTypeAuthMismatch:
		return "Authentication failed - check product id"
	case ErrTypeNoData:
		return "No data from kettle"
	default:
		return ke.Message
	}
}
