package errors

import (
	"fmt"
	"io"
	"runtime"
)

const maxStackDepth = 32

type stack []uintptr

func callers() *stack {
	var pcs [maxStackDepth]uintptr
	// skip runtime.Callers, callers and the errors constructor itself
	n := runtime.Callers(3, pcs[:])
	st := stack(pcs[0:n])
	return &st
}

// fullStack renders every frame as "file:line funcname".
func (s *stack) fullStack() []string {
	frames := runtime.CallersFrames(*s)
	var out []string
	for {
		frame, more := frames.Next()
		out = append(out, fmt.Sprintf("%s:%d %s", frame.File, frame.Line, frame.Function))
		if !more {
			break
		}
	}
	return out
}

func (s *stack) format(w io.Writer) {
	for _, line := range s.fullStack() {
		io.WriteString(w, "\n")
		io.WriteString(w, line)
	}
}
