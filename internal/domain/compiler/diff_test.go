package compiler

import "testing"

func TestDiff_Summary(t *testing.T) {
	tests := []struct {
		name string
		diff Diff
		want string
	}{
		{"add", NewDiff(DiffTypeAdd, "library", "sqlite", "", "3.7.4"), "+ library sqlite (3.7.4)"},
		{"add without version", NewDiff(DiffTypeAdd, "library", "runtime", "", ""), "+ library runtime"},
		{"remove", NewDiff(DiffTypeRemove, "library", "gdal", "built", ""), "- library gdal (built)"},
		{"modify", NewDiff(DiffTypeModify, "library", "geos", "partial", "3.2.3"), "~ library geos (partial -> 3.2.3)"},
		{"none", NewDiff(DiffTypeNone, "library", "bzip2", "", ""), "  library bzip2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.diff.Summary(); got != tt.want {
				t.Errorf("Summary() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDiff_Accessors(t *testing.T) {
	d := NewDiff(DiffTypeAdd, "library", "expat", "", "2.0.1").WithPaths("/c/build/expat", "/c/.finiexpat")

	if d.Type() != DiffTypeAdd || d.Type().String() != "add" {
		t.Errorf("Type() = %q", d.Type())
	}
	if d.Resource() != "library" || d.Name() != "expat" || d.NewValue() != "2.0.1" || d.OldValue() != "" {
		t.Errorf("unexpected accessors: %+v", d)
	}
	paths := d.Paths()
	paths[0] = "changed"
	if d.Paths()[0] != "/c/build/expat" {
		t.Error("Paths() should return a copy")
	}
}

func TestExplanation(t *testing.T) {
	sources := []string{"http://example.org/sqlite.tar.gz"}
	e := NewExplanation("Build SQLite", "autotools", sources).
		WithActions([]string{"fetch", "unpack"}).
		WithProvenance("recipe.yaml")
	sources[0] = "changed"

	if e.Summary() != "Build SQLite" || e.Detail() != "autotools" {
		t.Errorf("unexpected explanation: %+v", e)
	}
	if e.Sources()[0] != "http://example.org/sqlite.tar.gz" {
		t.Error("NewExplanation should copy sources")
	}
	if len(e.Actions()) != 2 || e.Provenance() != "recipe.yaml" {
		t.Errorf("Actions() = %v, Provenance() = %q", e.Actions(), e.Provenance())
	}
}

func TestStepStatus(t *testing.T) {
	tests := []struct {
		status   StepStatus
		action   bool
		terminal bool
		label    string
	}{
		{StatusSatisfied, false, true, "Already Done"},
		{StatusNeedsApply, true, false, "Pending"},
		{StatusUnknown, true, false, "Unknown"},
		{StatusFailed, true, true, "Failed"},
		{StatusSkipped, false, true, "Skipped"},
	}

	for _, tt := range tests {
		t.Run(tt.status.String(), func(t *testing.T) {
			if tt.status.NeedsAction() != tt.action {
				t.Errorf("NeedsAction() = %v", !tt.action)
			}
			if tt.status.IsTerminal() != tt.terminal {
				t.Errorf("IsTerminal() = %v", !tt.terminal)
			}
			if tt.status.Label() != tt.label {
				t.Errorf("Label() = %q, want %q", tt.status.Label(), tt.label)
			}
		})
	}
}
