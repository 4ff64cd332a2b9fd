package observability

import (
	"fmt"
	"runtime/debug"

	"github.com/sirupsen/logrus"
)

// PanicError is a recovered panic converted into an error.
type PanicError struct {
	Value interface{}
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Unwrap exposes the panic value when it was itself an error
// (runtime faults such as nil dereferences are runtime.Error values).
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// CapturePanic converts a recover() result into a *PanicError, or nil if
// nothing panicked. It must be called from the deferred function itself so
// the captured stack still includes the panicking frames.
//
//	defer func() {
//	    if perr := observability.CapturePanic(recover()); perr != nil {
//	        err = perr
//	    }
//	}()
func CapturePanic(r interface{}) *PanicError {
	if r == nil {
		return nil
	}
	return &PanicError{Value: r, Stack: debug.Stack()}
}

// RecoverPanic recovers from a panic and logs it with its stack. Use it in a
// defer at the top of goroutines that must not take the process down.
// The panic is not re-raised.
func RecoverPanic(logger *logrus.Logger, context string) {
	if r := recover(); r != nil {
		logger.WithFields(logrus.Fields{
			"panic":   r,
			"stack":   string(debug.Stack()),
			"context": context,
		}).Error("PANIC recovered")
	}
}
