// Package report turns caught errors into deduplicated issues in an external tracker.
//
// The pipeline has three stages: Collect builds a models.ErrorContext, Signature
// derives a stable dedup key from it, and Service decides whether an occurrence
// opens a new issue or comments on the one already cached for that signature.
// Nothing in this package returns an error to the code that caught the original
// failure.
package report

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/kiranshivaraju/faultline/internal/config"
	"github.com/kiranshivaraju/faultline/pkg/models"
	"github.com/pkg/errors"
)

const (
	unknownErrorMessage = "Unknown error"
	timestampLayout     = "2006-01-02T15:04:05.000Z"
	maxStackFrames      = 32
)

// Extra carries ambient request facts supplied by the caller. The collector
// never infers them.
type Extra struct {
	URL            string
	UserAgent      string
	RequestMethod  string
	UserID         string
	SessionID      string
	AdditionalData map[string]any
}

// stackTracer is implemented by errors created with github.com/pkg/errors.
type stackTracer interface {
	StackTrace() errors.StackTrace
}

// stackProvider lets callers attach a pre-rendered stack, e.g. one reported by a browser.
type stackProvider interface {
	Stack() string
}

// ClientError is an error reported by a remote client, with the stack text it sent.
type ClientError struct {
	Message   string
	StackText string
}

func (e ClientError) Error() string { return e.Message }
func (e ClientError) Stack() string { return e.StackText }

// Collect normalizes an arbitrary value into an ErrorContext. It has no side
// effects and never panics on a nil or unusual value.
func Collect(v any, extra Extra) models.ErrorContext {
	message, stack := describe(v)
	return build(message, stack, extra)
}

// CollectPanic converts a recovered panic value into an ErrorContext. It must be
// called from the deferred function that recovered, so the captured stack starts
// at the frame that panicked.
func CollectPanic(recovered any, extra Extra) models.ErrorContext {
	message, stack := describe(recovered)
	if stack == "" {
		stack = renderFrames(message, panicFrames())
	}
	return build(message, stack, extra)
}

func build(message, stack string, extra Extra) models.ErrorContext {
	if message == "" {
		message = unknownErrorMessage
	}
	return models.ErrorContext{
		Message:        message,
		Stack:          stack,
		Timestamp:      time.Now().UTC().Format(timestampLayout),
		URL:            extra.URL,
		UserAgent:      extra.UserAgent,
		RequestMethod:  extra.RequestMethod,
		Environment:    config.Environment(),
		UserID:         extra.UserID,
		SessionID:      extra.SessionID,
		AdditionalData: extra.AdditionalData,
	}
}

// describe extracts the message and, when available, the stack text of v.
// A value whose Error or String method panics (typically a typed nil pointer)
// is described by its type name.
func describe(v any) (message, stack string) {
	defer func() {
		if r := recover(); r != nil {
			message, stack = fmt.Sprintf("%T", v), ""
		}
	}()

	switch e := v.(type) {
	case nil:
		return "null", ""
	case stackProvider:
		msg := ""
		if err, ok := v.(error); ok {
			msg = err.Error()
		}
		return msg, e.Stack()
	case error:
		msg := e.Error()
		var st stackTracer
		if errors.As(e, &st) {
			return msg, renderStackTrace(msg, st.StackTrace())
		}
		return msg, ""
	default:
		return fmt.Sprint(v), ""
	}
}

// renderStackTrace writes a pkg/errors trace as "message\n    at func (file:line)" lines.
func renderStackTrace(message string, st errors.StackTrace) string {
	var b strings.Builder
	b.WriteString(message)
	for i, f := range st {
		if i == maxStackFrames {
			break
		}
		fmt.Fprintf(&b, "\n    at %n (%s:%d)", f, f, f)
	}
	return b.String()
}

func renderFrames(message string, frames []runtime.Frame) string {
	var b strings.Builder
	b.WriteString(message)
	for _, f := range frames {
		fmt.Fprintf(&b, "\n    at %s (%s:%d)", shortFuncName(f.Function), filepath.Base(f.File), f.Line)
	}
	return b.String()
}

// panicFrames returns the frames below runtime.gopanic, i.e. starting at the
// function that panicked.
func panicFrames() []runtime.Frame {
	pcs := make([]uintptr, 64)
	n := runtime.Callers(2, pcs)
	frames := runtime.CallersFrames(pcs[:n])

	var out []runtime.Frame
	seenPanic := false
	for {
		f, more := frames.Next()
		if seenPanic && !strings.HasPrefix(f.Function, "runtime.") {
			out = append(out, f)
			if len(out) == maxStackFrames {
				break
			}
		}
		if f.Function == "runtime.gopanic" {
			seenPanic = true
		}
		if !more {
			break
		}
	}
	return out
}

// shortFuncName drops the import path: "github.com/a/b/pkg.(*T).M" becomes "pkg.(*T).M".
func shortFuncName(name string) string {
	if i := strings.LastIndex(name, "/"); i >= 0 {
		return name[i+1:]
	}
	return name
}
