package errors

import (
	"errors"
	"fmt"
	"strings"
)

// As finds the first ToolError in err's chain.
func As(err error) (*ToolError, bool) {
	var te *ToolError
	if errors.As(err, &te) {
		return te, true
	}
	return nil, false
}

// wrap wraps err in a ToolError, keeping tool and context from an inner
// ToolError when there is one.
func wrap(err error, errType ErrorType, code, message string) *ToolError {
	if err == nil {
		return nil
	}

	if te, ok := As(err); ok {
		return &ToolError{
			Type:    errType,
			Code:    code,
			Message: message,
			Cause:   te,
			Tool:    te.Tool,
			Context: te.Context,
		}
	}

	return &ToolError{
		Type:    errType,
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// WrapStorage wraps err as a storage error.
func WrapStorage(err error, message string) *ToolError {
	return wrap(err, ErrorTypeStorage, ErrCodeStorageFailed, message)
}

// WrapConfig wraps err as a configuration error.
func WrapConfig(err error, message string) *ToolError {
	return wrap(err, ErrorTypeConfig, ErrCodeConfigInvalid, message)
}

// CombineErrors joins the non-nil errors. One error comes back as is.
func CombineErrors(errs ...error) error {
	var nonNil []error
	for _, err := range errs {
		if err != nil {
			nonNil = append(nonNil, err)
		}
	}

	switch len(nonNil) {
	case 0:
		return nil
	case 1:
		return nonNil[0]
	}

	messages := make([]string, len(nonNil))
	for i, err := range nonNil {
		messages[i] = err.Error()
	}
	return &ToolError{
		Type:    ErrorTypeInternal,
		Code:    ErrCodeInternalError,
		Message: fmt.Sprintf("%d errors occurred: %s", len(nonNil), strings.Join(messages, "; ")),
		Cause:   errors.Join(nonNil...),
		Context: map[string]interface{}{"error_count": len(nonNil)},
	}
}
