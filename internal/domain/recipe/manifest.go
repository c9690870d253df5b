package recipe

import (
	"fmt"

	"github.com/felixgeelhaar/qgsmg/internal/domain/procedure"
)

// Manifest is the on-disk form of a recipe, shared by the YAML and HCL
// formats. In HCL every step is a labelled block:
//
//	step "sqlite" {
//	  version   = "3.7.4"
//	  salt_kind = "pkgconfig"
//	  fetch "fetch" { url = "http://www.sqlite.org/sqlite-autoconf-3070400.tar.gz" }
//	  build { strategy = "autotools" }
//	}
//
// HCL strings need $${...} for placeholders.
type Manifest struct {
	// Default is the target built when none is given; the last step if empty.
	Default string      `yaml:"default,omitempty" hcl:"default,optional"`
	Steps   []*StepSpec `yaml:"steps" hcl:"step,block"`
}

// StepSpec declares one build step.
type StepSpec struct {
	Name       string            `yaml:"name" hcl:"name,label"`
	Library    string            `yaml:"library,omitempty" hcl:"library,optional"`
	Human      string            `yaml:"human,omitempty" hcl:"human,optional"`
	Version    string            `yaml:"version,omitempty" hcl:"version,optional"`
	DependsOn  []string          `yaml:"depends_on,omitempty" hcl:"depends_on,optional"`
	SaltFrom   []string          `yaml:"salt_from,omitempty" hcl:"salt_from,optional"`
	SaltKind   string            `yaml:"salt_kind,omitempty" hcl:"salt_kind,optional"`
	Flags      map[string]string `yaml:"flags,omitempty" hcl:"flags,optional"`
	HostPython bool              `yaml:"host_python,omitempty" hcl:"host_python,optional"`
	Fetch      []*ActionSpec     `yaml:"fetch,omitempty" hcl:"fetch,block"`
	Workdir    string            `yaml:"workdir,omitempty" hcl:"workdir,optional"`
	Prepare    []*ActionSpec     `yaml:"prepare,omitempty" hcl:"prepare,block"`
	Build      *BuildSpec        `yaml:"build,omitempty" hcl:"build,block"`
	Headers    bool              `yaml:"headers,omitempty" hcl:"headers,optional"`
	Install    []*InstallSpec    `yaml:"install,omitempty" hcl:"install,block"`
}

// ActionSpec declares one fetch or prepare action.
type ActionSpec struct {
	Do      string            `yaml:"do" hcl:"do,label"`
	Dir     string            `yaml:"dir,omitempty" hcl:"dir,optional"`
	URL     string            `yaml:"url,omitempty" hcl:"url,optional"`
	File    string            `yaml:"file,omitempty" hcl:"file,optional"`
	Path    string            `yaml:"path,omitempty" hcl:"path,optional"`
	Cache   string            `yaml:"cache,omitempty" hcl:"cache,optional"`
	Expr    string            `yaml:"expr,omitempty" hcl:"expr,optional"`
	Sed     string            `yaml:"sed,omitempty" hcl:"sed,optional"`
	Strip   *int              `yaml:"strip,omitempty" hcl:"strip,optional"`
	Content string            `yaml:"content,omitempty" hcl:"content,optional"`
	Tool    string            `yaml:"tool,omitempty" hcl:"tool,optional"`
	Args    []string          `yaml:"args,omitempty" hcl:"args,optional"`
	Env     map[string]string `yaml:"env,omitempty" hcl:"env,optional"`
}

// BuildSpec declares the build phase.
type BuildSpec struct {
	Strategy  string            `yaml:"strategy" hcl:"strategy"`
	NoHarness bool              `yaml:"no_harness,omitempty" hcl:"no_harness,optional"`
	Where     string            `yaml:"where,omitempty" hcl:"where,optional"`
	Args      []string          `yaml:"args,omitempty" hcl:"args,optional"`
	Defines   map[string]string `yaml:"defines,omitempty" hcl:"defines,optional"`
	MakeArgs  []string          `yaml:"make_args,omitempty" hcl:"make_args,optional"`
	Project   string            `yaml:"project,omitempty" hcl:"project,optional"`
	Makefile  string            `yaml:"makefile,omitempty" hcl:"makefile,optional"`
	Install   bool              `yaml:"install,omitempty" hcl:"install,optional"`
	NoInstall bool              `yaml:"no_install,omitempty" hcl:"no_install,optional"`
	Host      bool              `yaml:"host,omitempty" hcl:"host,optional"`
	Source    string            `yaml:"source,omitempty" hcl:"source,optional"`
	Env       map[string]string `yaml:"env,omitempty" hcl:"env,optional"`
}

// InstallSpec copies a build product into place.
type InstallSpec struct {
	From     string `yaml:"from" hcl:"from"`
	To       string `yaml:"to" hcl:"to"`
	Optional bool   `yaml:"optional,omitempty" hcl:"optional,optional"`
}

// procedure converts a step's procedure fields.
func (s *StepSpec) procedure(libraries map[string]string) (*procedure.Procedure, error) {
	fetch, err := actions(s.Fetch)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	prepare, err := actions(s.Prepare)
	if err != nil {
		return nil, fmt.Errorf("prepare: %w", err)
	}

	p := &procedure.Procedure{
		Fetch:      fetch,
		Workdir:    s.Workdir,
		Prepare:    prepare,
		Headers:    s.Headers,
		HostPython: s.HostPython,
		Libraries:  libraries,
	}
	if b := s.Build; b != nil {
		p.Build = procedure.Build{
			Strategy:  b.Strategy,
			NoHarness: b.NoHarness,
			Where:     b.Where,
			Args:      b.Args,
			Defines:   b.Defines,
			MakeArgs:  b.MakeArgs,
			Project:   b.Project,
			Makefile:  b.Makefile,
			Install:   b.Install,
			NoInstall: b.NoInstall,
			Host:      b.Host,
			Source:    b.Source,
			Env:       b.Env,
		}
	}
	for _, in := range s.Install {
		p.Installs = append(p.Installs, procedure.Install{From: in.From, To: in.To, Optional: in.Optional})
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func actions(specs []*ActionSpec) ([]procedure.Action, error) {
	out := make([]procedure.Action, 0, len(specs))
	for i, a := range specs {
		kind, err := procedure.ParseActionKind(a.Do)
		if err != nil {
			return nil, fmt.Errorf("action %d: %w", i+1, err)
		}
		out = append(out, procedure.Action{
			Kind:    kind,
			Dir:     a.Dir,
			URL:     a.URL,
			File:    a.File,
			Path:    a.Path,
			Cache:   a.Cache,
			Expr:    a.Expr,
			SedMode: a.Sed,
			Strip:   a.Strip,
			Content: a.Content,
			Tool:    a.Tool,
			Args:    a.Args,
			Env:     a.Env,
		})
	}
	return out, nil
}
