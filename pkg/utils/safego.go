package utils

import (
	"log/slog"
	"runtime/debug"
)

// Go launches fn in a new goroutine and recovers any panic, logging it instead of
// crashing the process. Use it for fire-and-forget work started from request handlers.
func Go(log *slog.Logger, fn func()) {
	if log == nil {
		log = slog.Default()
	}
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error("recovered panic in background goroutine", "panic", r, "stack", string(debug.Stack()))
			}
		}()
		fn()
	}()
}
