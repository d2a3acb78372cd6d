// internal/common/errors/guard.go
package errors

import (
	"fmt"
	"runtime/debug"
)

// Logger is the minimal logging surface the guard needs.
type Logger interface {
	Error(msg string, fields map[string]interface{})
}

// PanicError is what Guard returns for a recovered panic. Stack is captured
// inside the recover handler, so it still shows the panicking frame rather
// than whatever the caller runs afterward.
type PanicError struct {
	Op    string
	Value interface{}
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic in %s: %v", e.Op, e.Value)
}

// Guard runs fn and converts any returned error or panic into a logged,
// swallowed outcome. Every public operation of the pipeline crosses this one
// boundary, which is what keeps the no-throw contract auditable in one place.
// The returned error is what fn produced (or the recovered panic), for
// callers that want to audit it themselves; Guard itself never re-raises.
func Guard(log Logger, op string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Op: op, Value: r, Stack: debug.Stack()}
			log.Error("recovered panic", map[string]interface{}{
				"operation": op,
				"panic":     fmt.Sprintf("%v", r),
			})
		}
	}()

	if err = fn(); err != nil {
		log.Error("operation failed", map[string]interface{}{
			"operation": op,
			"error":     err.Error(),
		})
	}
	return err
}
