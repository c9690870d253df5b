package recipe

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/qgsmg/internal/domain/compiler"
	"github.com/felixgeelhaar/qgsmg/internal/ports"
)

// DefaultSource names the embedded recipe in provenance and errors.
const DefaultSource = "builtin:recipe.yaml"

//go:embed recipe.yaml
var defaultRecipe []byte

// Format is a manifest encoding.
type Format string

// Manifest formats.
const (
	FormatYAML Format = "yaml"
	FormatHCL  Format = "hcl"
)

// FormatFor picks the manifest format from a file name.
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".hcl":
		return FormatHCL, nil
	}
	return "", compiler.NewStepError(compiler.ErrCodeRecipeInvalid,
		fmt.Sprintf("unsupported recipe file %s", path)).
		WithSuggestion("Use a .yaml, .yml or .hcl file")
}

// Parse decodes a manifest. source is used in error messages and, for HCL,
// as the file name in diagnostics.
func Parse(data []byte, format Format, source string) (Manifest, error) {
	var m Manifest
	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&m); err != nil && !errors.Is(err, io.EOF) {
			return Manifest{}, invalid(source, err)
		}
	case FormatHCL:
		file, diags := hclparse.NewParser().ParseHCL(data, source)
		if diags.HasErrors() {
			return Manifest{}, invalid(source, diags)
		}
		if diags := gohcl.DecodeBody(file.Body, nil, &m); diags.HasErrors() {
			return Manifest{}, invalid(source, diags)
		}
	default:
		return Manifest{}, fmt.Errorf("unknown recipe format %q", format)
	}
	if len(m.Steps) == 0 {
		return Manifest{}, invalid(source, errors.New("recipe declares no steps"))
	}
	return m, nil
}

// ParseFile reads and decodes a manifest file.
func ParseFile(fsys ports.FileSystem, path string) (Manifest, error) {
	format, err := FormatFor(path)
	if err != nil {
		return Manifest{}, err
	}
	data, err := fsys.ReadFile(path)
	if err != nil {
		return Manifest{}, fmt.Errorf("reading recipe %s: %w", path, err)
	}
	return Parse(data, format, path)
}

// DefaultManifest returns the built-in recipe.
func DefaultManifest() (Manifest, error) {
	return Parse(defaultRecipe, FormatYAML, DefaultSource)
}

func invalid(source string, err error) error {
	return compiler.NewStepError(compiler.ErrCodeRecipeInvalid,
		fmt.Sprintf("invalid recipe %s: %v", source, err)).
		WithUnderlying(err)
}
