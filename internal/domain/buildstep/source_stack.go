package buildstep

import (
	"errors"
	"fmt"
	"path/filepath"
)

// Errors for SourceStack misuse.
var (
	ErrSourceStackUnderflow  = errors.New("source stack underflow: cannot pop the base directory")
	ErrUnbalancedSourceStack = errors.New("source stack unbalanced: procedure returned with pushed directories")
)

// SourceStack tracks the directory a procedure is working in.
// The base entry is the step's source dir and can never be popped.
type SourceStack struct {
	dirs []string
}

// NewSourceStack creates a stack rooted at base.
func NewSourceStack(base string) *SourceStack {
	return &SourceStack{dirs: []string{base}}
}

// Current returns the directory on top of the stack.
func (s *SourceStack) Current() string {
	return s.dirs[len(s.dirs)-1]
}

// Push enters dir. A relative dir is taken relative to Current.
func (s *SourceStack) Push(dir string) string {
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(s.Current(), dir)
	}
	s.dirs = append(s.dirs, dir)
	return dir
}

// Pop leaves the current directory.
func (s *SourceStack) Pop() error {
	if len(s.dirs) == 1 {
		return ErrSourceStackUnderflow
	}
	s.dirs = s.dirs[:len(s.dirs)-1]
	return nil
}

// Depth returns the number of pushed entries above the base.
func (s *SourceStack) Depth() int {
	return len(s.dirs) - 1
}

// Within runs fn with dir pushed and pops it again however fn returns.
func (s *SourceStack) Within(dir string, fn func(dir string) error) error {
	depth := len(s.dirs)
	pushed := s.Push(dir)
	defer func() { s.dirs = s.dirs[:depth] }()
	return fn(pushed)
}

// CheckBalanced fails if anything is left pushed above the base.
func (s *SourceStack) CheckBalanced() error {
	if d := s.Depth(); d != 0 {
		return fmt.Errorf("%w: %d left, top %s", ErrUnbalancedSourceStack, d, s.Current())
	}
	return nil
}
