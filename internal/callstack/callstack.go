// Package callstack captures and formats goroutine stacks in the shape used
// for crash boundary component stacks.
package callstack

import (
	"fmt"
	"runtime"
	"strings"
)

const maxDepth = 64

// Capture returns the program counters of the calling goroutine, skipping
// the given number of frames above the caller of Capture.
func Capture(skip int) []uintptr {
	pcs := make([]uintptr, maxDepth)
	n := runtime.Callers(skip+2, pcs)
	return pcs[:n]
}

// Format renders pcs one frame per line, as "\n    in fn (file:line)".
// Runtime frames are omitted. Returns "" for an empty slice.
func Format(pcs []uintptr) string {
	if len(pcs) == 0 {
		return ""
	}
	var b strings.Builder
	frames := runtime.CallersFrames(pcs)
	for {
		frame, more := frames.Next()
		writeFrame(&b, frame)
		if !more {
			break
		}
	}
	return b.String()
}

// PanicStack must be called from a deferred function that is handling a
// panic. It returns the formatted frames that were active when the panic
// started, i.e. everything below the runtime's panic machinery. If no panic
// frame is found the whole stack of the caller is formatted.
func PanicStack() string {
	pcs := Capture(1)
	var (
		b     strings.Builder
		found bool
	)
	frames := runtime.CallersFrames(pcs)
	for {
		frame, more := frames.Next()
		if found {
			writeFrame(&b, frame)
		} else if isPanicFrame(frame.Function) {
			found = true
		}
		if !more {
			break
		}
	}
	if !found {
		return Format(pcs)
	}
	return b.String()
}

// PanicFrame is like [PanicStack], but returns only the frame that
// panicked, i.e. the first non-runtime frame below the panic machinery.
func PanicFrame() (runtime.Frame, bool) {
	frames := runtime.CallersFrames(Capture(1))
	var found bool
	for {
		frame, more := frames.Next()
		if found {
			if frame.Function != `` && !strings.HasPrefix(frame.Function, `runtime.`) {
				return frame, true
			}
		} else if isPanicFrame(frame.Function) {
			found = true
		}
		if !more {
			return runtime.Frame{}, false
		}
	}
}

func isPanicFrame(fn string) bool {
	return fn == `runtime.sigpanic` ||
		strings.HasPrefix(fn, `runtime.gopanic`) ||
		strings.HasPrefix(fn, `runtime.panic`)
}

func writeFrame(b *strings.Builder, frame runtime.Frame) {
	if frame.Function == `` || strings.HasPrefix(frame.Function, `runtime.`) {
		return
	}
	_, _ = fmt.Fprintf(b, "\n    in %s (%s:%d)", frame.Function, frame.File, frame.Line)
}
