package wsi

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// nopHandler drops every record. Enabled is false, so the flip goroutine
// never builds attributes for a frame nobody logs.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(newNopLogger())
}

// SetLogger sets the logger shared by wsi and its sub-packages. nil
// restores the silent default.
//
// A swapchain binds the logger when it is created and tags every record
// with its "swapchain" id, so SetLogger only affects swapchains created
// afterwards. Records carry "image" for image indices and "ancestor" or
// "descendant" for the linked swapchain. Levels:
//   - [slog.LevelDebug]: one record per acquire, queue, flip and unpresent,
//     plus the ancestor drain on a descendant's first flip
//   - [slog.LevelInfo]: swapchain created, linked, deprecated, destroyed;
//     surface chain changes
//   - [slog.LevelWarn]: a queue submission failed, or a fence wait or
//     platform flip failed and the swapchain was invalidated so the next
//     Acquire returns ErrSurfaceLost
//
// Example:
//
//	wsi.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)
}

// Logger returns the logger set by SetLogger.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}
