// -----------------------------------------------------------------------
// Safe Call - Panic-protected execution for fan-out workers
// -----------------------------------------------------------------------

package common

import (
	"fmt"
	"runtime"

	"github.com/ternarybob/arbor"
)

// PanicError carries a value recovered from a panicking worker
type PanicError struct {
	Name  string
	Value interface{}
	Stack string
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic in %s: %v", e.Name, e.Value)
}

// SafeCall runs fn and converts a panic into a *PanicError.
// Use this inside fan-out goroutines so one failing task cannot take down its siblings.
//
// Example:
//
//	go func() {
//	    defer wg.Done()
//	    results[i].err = common.SafeCall(logger, "channel:"+name, func() error {
//	        return fetch(ctx, name)
//	    })
//	}()
func SafeCall(logger arbor.ILogger, name string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			stackTrace := string(buf[:n])

			if logger != nil {
				logger.Error().
					Str("goroutine", name).
					Str("panic", fmt.Sprintf("%v", r)).
					Str("stack", stackTrace).
					Msg("Recovered from panic in worker - continuing run")
			}

			err = &PanicError{Name: name, Value: r, Stack: stackTrace}
		}
	}()

	return fn()
}
