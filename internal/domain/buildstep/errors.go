package buildstep

import (
	"errors"
	"fmt"
	"strings"
)

// ErrToolFailure is matched by every ToolFailureError.
var ErrToolFailure = errors.New("external tool failed")

// ToolFailureError reports an external tool that exited non-zero or could
// not be started. It aborts the step that ran it and the rest of the chain.
type ToolFailureError struct {
	Step     string
	Tool     string
	Args     []string
	Dir      string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ToolFailureError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s failed", e.Tool)
	if e.Step != "" {
		fmt.Fprintf(&b, " while building %s", e.Step)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	} else {
		fmt.Fprintf(&b, " with exit status %d", e.ExitCode)
	}
	if last := lastLine(e.Stderr); last != "" {
		fmt.Fprintf(&b, ": %s", last)
	}
	return b.String()
}

// Unwrap returns the start error, if any.
func (e *ToolFailureError) Unwrap() error {
	return e.Err
}

// Is matches ErrToolFailure.
func (e *ToolFailureError) Is(target error) bool {
	return target == ErrToolFailure
}

// FailedTool returns the tool name of the first ToolFailureError in err's chain.
func FailedTool(err error) (string, bool) {
	var toolErr *ToolFailureError
	if errors.As(err, &toolErr) {
		return toolErr.Tool, true
	}
	return "", false
}

func lastLine(s string) string {
	s = strings.TrimRight(s, "\n\r\t ")
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	return strings.TrimSpace(s)
}
