package compiler

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestStepError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *StepError
		want string
	}{
		{
			name: "message only",
			err:  NewStepError(ErrCodeRecipeInvalid, "bad recipe"),
			want: "bad recipe",
		},
		{
			name: "step and tool",
			err:  NewStepError(ErrCodeToolFailed, "exited with status 2").WithStepID("sqlite").WithTool("make"),
			want: `step "sqlite", tool "make": exited with status 2`,
		},
		{
			name: "path",
			err:  NewAlreadyExistsError("/tmp/app"),
			want: "destination already exists: /tmp/app",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStepError_Format(t *testing.T) {
	err := NewApplyFailedError("gdal", errors.New("patch failed")).WithTool("patch")
	out := err.Format()

	for _, want := range []string{"[APPLY_FAILED]", "Step: gdal", "Tool: patch", "Suggestion:", "Cause: patch failed"} {
		if !strings.Contains(out, want) {
			t.Errorf("Format() missing %q in:\n%s", want, out)
		}
	}
}

func TestStepError_WithDoesNotMutate(t *testing.T) {
	base := NewStepError(ErrCodeCheckFailed, "x")
	_ = base.WithStepID("a").WithTool("b").WithSuggestion("c").WithUnderlying(errors.New("d"))

	if base.StepID != "" || base.Tool != "" || base.Suggestion != "" || base.Underlying != nil {
		t.Errorf("With* modified the original: %+v", base)
	}
}

func TestStepError_Sentinels(t *testing.T) {
	tests := []struct {
		err  error
		want error
		code string
	}{
		{NewUnknownTargetError("x", []string{"b", "a"}), ErrUnknownTarget, ErrCodeStepNotFound},
		{NewAlreadyExistsError("/p"), ErrAlreadyExists, ErrCodeAlreadyExists},
		{NewStepDuplicateError("a"), ErrDuplicateStep, ErrCodeStepDuplicate},
		{NewDependencyMissingError("a", "b"), ErrMissingDep, ErrCodeDependencyMissing},
		{NewCyclicDependencyError([]string{"a", "b"}), ErrCyclicDependency, ErrCodeCyclicDependency},
	}

	for _, tt := range tests {
		wrapped := fmt.Errorf("outer: %w", tt.err)
		if !errors.Is(wrapped, tt.want) {
			t.Errorf("errors.Is(%v, %v) = false", wrapped, tt.want)
		}
		if CodeOf(wrapped) != tt.code {
			t.Errorf("CodeOf() = %q, want %q", CodeOf(wrapped), tt.code)
		}
	}
}

func TestNewUnknownTargetError_ListsTargets(t *testing.T) {
	err := NewUnknownTargetError("qgiz", []string{"sqlite", "bzip2"})
	if err.Suggestion != "Known targets: bzip2, sqlite." {
		t.Errorf("Suggestion = %q", err.Suggestion)
	}
	if CodeOf(errors.New("plain")) != "" {
		t.Error("CodeOf() should be empty for plain errors")
	}
}
