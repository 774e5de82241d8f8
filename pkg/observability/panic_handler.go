package observability

import (
	"fmt"
	"runtime/debug"
)

// LogPanic logs a value obtained from recover() together with the stack
// and returns it as an error. A nil value is not a panic and yields nil.
//
//	defer func() {
//	    if err := observability.LogPanic(logger, "shutdown function", recover()); err != nil {
//	        errCh <- err
//	    }
//	}()
func LogPanic(logger *Logger, where string, v interface{}) error {
	if v == nil {
		return nil
	}
	logger.WithFields(map[string]interface{}{
		"panic":   fmt.Sprint(v),
		"stack":   string(debug.Stack()),
		"context": where,
	}).Error("PANIC recovered")
	return fmt.Errorf("panic in %s: %v", where, v)
}
