package compiler

import (
	"errors"
	"testing"
)

func TestNewStepID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr error
	}{
		{name: "library", input: "sqlite", want: "sqlite"},
		{name: "digits", input: "proj4", want: "proj4"},
		{name: "trimmed", input: "  gdal ", want: "gdal"},
		{name: "hyphen", input: "py-qt", want: "py-qt"},
		{name: "empty", input: "  ", wantErr: ErrEmptyStepID},
		{name: "uppercase", input: "SQLite", wantErr: ErrInvalidStepID},
		{name: "path", input: "build/sqlite", wantErr: ErrInvalidStepID},
		{name: "leading hyphen", input: "-x", wantErr: ErrInvalidStepID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := NewStepID(tt.input)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("NewStepID() error = %v, want %v", err, tt.wantErr)
			}
			if id.String() != tt.want {
				t.Errorf("NewStepID() = %q, want %q", id.String(), tt.want)
			}
		})
	}
}

func TestMustNewStepID_Panics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("MustNewStepID() should panic on invalid input")
		}
	}()
	MustNewStepID("Not Valid")
}

func TestStepID_Equality(t *testing.T) {
	a := MustNewStepID("geos")
	if !a.Equals(MustNewStepID("geos")) {
		t.Error("Equals() = false for identical IDs")
	}
	if a.Equals(MustNewStepID("gsl")) {
		t.Error("Equals() = true for different IDs")
	}
	if a.IsZero() || !(StepID{}).IsZero() {
		t.Error("IsZero() mismatch")
	}
}

func TestStepIDs(t *testing.T) {
	got, err := StepIDs("toolchain", "bzip2")
	if err != nil || len(got) != 2 || got[1].String() != "bzip2" {
		t.Fatalf("StepIDs() = %v, %v", got, err)
	}
	if _, err := StepIDs("ok", "Bad"); !errors.Is(err, ErrInvalidStepID) {
		t.Errorf("StepIDs() error = %v", err)
	}
}
