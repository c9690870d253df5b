package procedure

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/felixgeelhaar/qgsmg/internal/ports"
)

// ActionKind names a prepare action.
type ActionKind string

// Prepare actions.
const (
	ActionFetch      ActionKind = "fetch"
	ActionUnpack     ActionKind = "unpack"
	ActionCheckout   ActionKind = "checkout"
	ActionPatch      ActionKind = "patch"
	ActionSed        ActionKind = "sed"
	ActionFixConfig  ActionKind = "fixconfig"
	ActionAutogen    ActionKind = "autogen"
	ActionAutoreconf ActionKind = "autoreconf"
	ActionMkdir      ActionKind = "mkdir"
	ActionWrite      ActionKind = "write"
	ActionPrepend    ActionKind = "prepend"
	ActionCopy       ActionKind = "copy"
	ActionMove       ActionKind = "move"
	ActionRemove     ActionKind = "remove"
	ActionRun        ActionKind = "run"
)

// PartialSuffix marks a cached download that has not completed.
const PartialSuffix = ".part"

// ActionKinds lists every known action kind.
func ActionKinds() []ActionKind {
	return []ActionKind{
		ActionFetch, ActionUnpack, ActionCheckout, ActionPatch, ActionSed,
		ActionFixConfig, ActionAutogen, ActionAutoreconf, ActionMkdir,
		ActionWrite, ActionPrepend, ActionCopy, ActionMove, ActionRemove, ActionRun,
	}
}

// ParseActionKind validates a recipe action name.
func ParseActionKind(s string) (ActionKind, error) {
	for _, k := range ActionKinds() {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown action %q", s)
}

// Action is one prepare step. Relative paths are taken against the current
// source directory; Dir, when set, is entered for the action only.
type Action struct {
	Kind ActionKind
	Dir  string
	// URL is fetched or checked out.
	URL string
	// File is the archive, patch, sed target or file to write.
	File string
	// Path is a checkout directory, copy or move destination, or directory.
	Path string
	// Cache keeps a fetched file outside the step's source dir so a purge
	// does not force another download.
	Cache string
	Expr  string
	// SedMode is one of "", "i", "ir" or "ie".
	SedMode string
	Strip   *int
	Content string
	Tool    string
	Args    []string
	Env     map[string]string
}

// Describe returns a one-line summary for plans.
func (a Action) Describe() string {
	var target string
	switch a.Kind {
	case ActionFetch, ActionCheckout:
		target = a.URL
	case ActionRun:
		target = strings.TrimSpace(a.Tool + " " + strings.Join(a.Args, " "))
	case ActionMkdir, ActionMove:
		target = a.Path
	default:
		target = a.File
	}
	line := string(a.Kind)
	if target != "" {
		line += " " + target
	}
	if a.Dir != "" {
		line += " (in " + a.Dir + ")"
	}
	return line
}

// fetchedName is the file name a fetch stores.
func (a Action) fetchedName() string {
	if a.File != "" {
		return a.File
	}
	return path.Base(strings.TrimRight(a.URL, "/"))
}

func (r *runner) action(ctx context.Context, a Action) error {
	if a.Dir == "" {
		return r.doAction(ctx, a)
	}
	dir, err := r.vars.Expand(a.Dir)
	if err != nil {
		return err
	}
	return r.ws.Stack.Within(dir, func(string) error {
		return r.doAction(ctx, a)
	})
}

func (r *runner) doAction(ctx context.Context, a Action) error {
	switch a.Kind {
	case ActionFetch:
		return r.fetch(ctx, a)
	case ActionUnpack:
		return r.unpack(ctx, a)
	case ActionCheckout:
		return r.checkout(ctx, a)
	case ActionPatch:
		return r.patch(ctx, a)
	case ActionSed:
		return r.sed(ctx, a)
	case ActionFixConfig:
		return r.fixConfig()
	case ActionAutogen:
		return r.tool(ctx, nil, "bash", "autogen.sh")
	case ActionAutoreconf:
		return r.tool(ctx, nil, "autoreconf")
	case ActionMkdir:
		p, err := r.path(a.Path)
		if err != nil {
			return err
		}
		return r.ws.FS.MkdirAll(p, 0o755)
	case ActionWrite, ActionPrepend:
		return r.write(a)
	case ActionCopy:
		return r.copy(a)
	case ActionMove:
		from, err := r.path(a.File)
		if err != nil {
			return err
		}
		to, err := r.path(a.Path)
		if err != nil {
			return err
		}
		return r.ws.FS.Rename(from, to)
	case ActionRemove:
		p, err := r.path(a.File)
		if err != nil {
			return err
		}
		if err := r.ws.FS.Remove(p); err != nil && r.ws.FS.Exists(p) {
			return err
		}
		return nil
	case ActionRun:
		env, err := r.vars.ExpandMap(a.Env)
		if err != nil {
			return err
		}
		tool, err := r.vars.Expand(a.Tool)
		if err != nil {
			return err
		}
		args, err := r.vars.ExpandAll(a.Args)
		if err != nil {
			return err
		}
		return r.tool(ctx, env, tool, args...)
	}
	return fmt.Errorf("unknown action %q", a.Kind)
}

// path expands p and makes it absolute against the current directory.
func (r *runner) path(p string) (string, error) {
	p, err := r.vars.Expand(p)
	if err != nil {
		return "", err
	}
	if filepath.IsAbs(p) {
		return p, nil
	}
	return filepath.Join(r.ws.Stack.Current(), p), nil
}

func (r *runner) fetch(ctx context.Context, a Action) error {
	url, err := r.vars.Expand(a.URL)
	if err != nil {
		return err
	}
	cwd := r.ws.Stack.Current()
	if a.Cache == "" {
		return r.tool(ctx, nil, "wget", wgetArgs(cwd, a.File, url)...)
	}

	cacheDir, err := r.path(a.Cache)
	if err != nil {
		return err
	}
	name := a.fetchedName()
	cached := filepath.Join(cacheDir, name)
	if r.ws.FS.Exists(cached) {
		r.ws.Logger.Debug(ctx, "using cached download", ports.F("path", cached))
	} else if err := r.download(ctx, url, cached); err != nil {
		return err
	}
	return r.ws.FS.CopyFile(cached, filepath.Join(cwd, name))
}

// download fetches url into a ".part" file beside dest and renames it only
// once wget succeeds, so an interrupted transfer is never taken as cached.
func (r *runner) download(ctx context.Context, url, dest string) error {
	if err := r.ws.FS.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	part := dest + PartialSuffix
	if err := r.ws.FS.RemoveAll(part); err != nil {
		return fmt.Errorf("removing stale %s: %w", part, err)
	}
	if err := r.tool(ctx, nil, "wget", "-O", part, url); err != nil {
		_ = r.ws.FS.RemoveAll(part)
		return err
	}
	return r.ws.FS.Rename(part, dest)
}

// wgetArgs stores url in dir, under name when one is given.
func wgetArgs(dir, name, url string) []string {
	if name != "" {
		return []string{"-O", filepath.Join(dir, name), url}
	}
	return []string{"-P", dir, url}
}

// unpackFlags picks the tar mode from the archive extension.
func unpackFlags(archive string) string {
	switch {
	case strings.HasSuffix(archive, ".bz2"), strings.HasSuffix(archive, ".tbz2"):
		return "xjvf"
	case strings.HasSuffix(archive, ".xz"):
		return "xJvf"
	}
	return "xzvf"
}

func (r *runner) unpack(ctx context.Context, a Action) error {
	archive, err := r.path(a.File)
	if err != nil {
		return err
	}
	cwd := r.ws.Stack.Current()
	if err := r.tool(ctx, nil, "tar", unpackFlags(archive), archive, "-C", cwd); err != nil {
		return err
	}
	if a.Path == "" {
		return nil
	}
	// Rename the unpacked top-level directory.
	to, err := r.path(a.Path)
	if err != nil {
		return err
	}
	return r.ws.FS.Rename(filepath.Join(cwd, r.ws.Layout.Library()), to)
}

func (r *runner) checkout(ctx context.Context, a Action) error {
	url, err := r.vars.Expand(a.URL)
	if err != nil {
		return err
	}
	args := []string{"checkout", url}
	if a.Path != "" {
		args = append(args, a.Path)
	}
	return r.tool(ctx, nil, "svn", args...)
}

func (r *runner) patch(ctx context.Context, a Action) error {
	file, err := r.vars.Expand(a.File)
	if err != nil {
		return err
	}
	if !filepath.IsAbs(file) {
		file = filepath.Join(r.ws.Layout.PatchDir(), file)
	}
	args := make([]string, 0, 5)
	if a.Strip != nil {
		args = append(args, "-p"+strconv.Itoa(*a.Strip))
	}
	args = append(args, "-d", r.ws.Stack.Current(), "-i", file)
	return r.tool(ctx, nil, "patch", args...)
}

// sedOptions maps a sed mode to its command-line options.
func sedOptions(mode string) ([]string, error) {
	switch mode {
	case "":
		return nil, nil
	case "i":
		return []string{"-i"}, nil
	case "ir":
		return []string{"-i", "-r"}, nil
	case "ie":
		return []string{"-i", "-e"}, nil
	}
	return nil, fmt.Errorf("unknown sed mode %q", mode)
}

func (r *runner) sed(ctx context.Context, a Action) error {
	args, err := sedOptions(a.SedMode)
	if err != nil {
		return err
	}
	expr, err := r.vars.Expand(a.Expr)
	if err != nil {
		return err
	}
	file, err := r.vars.Expand(a.File)
	if err != nil {
		return err
	}
	args = append(args, expr, file)
	return r.tool(ctx, nil, "sed", args...)
}

// ConfigFiles are the autotools helper scripts fixconfig replaces.
var ConfigFiles = []string{"config.sub", "config.guess"}

func (r *runner) fixConfig() error {
	cwd := r.ws.Stack.Current()
	for _, name := range ConfigFiles {
		dest := filepath.Join(cwd, name)
		if r.ws.FS.Exists(dest) {
			if err := r.ws.FS.Remove(dest); err != nil {
				return fmt.Errorf("removing %s: %w", dest, err)
			}
		}
		src := filepath.Join(r.ws.Layout.PatchesRoot(), "config", name)
		if err := r.ws.FS.CopyFile(src, dest); err != nil {
			return fmt.Errorf("replacing %s: %w", name, err)
		}
	}
	return nil
}

func (r *runner) write(a Action) error {
	p, err := r.path(a.File)
	if err != nil {
		return err
	}
	content, err := r.vars.Expand(a.Content)
	if err != nil {
		return err
	}
	data := []byte(content)
	if a.Kind == ActionPrepend {
		existing, err := r.ws.FS.ReadFile(p)
		if err != nil {
			return fmt.Errorf("prepending to %s: %w", p, err)
		}
		data = append(data, existing...)
	}
	return r.ws.FS.WriteFile(p, data, 0o644)
}

func (r *runner) copy(a Action) error {
	src, err := r.vars.Expand(a.File)
	if err != nil {
		return err
	}
	if !filepath.IsAbs(src) {
		src = filepath.Join(r.ws.Layout.PatchDir(), src)
	}
	destRel := a.Path
	if destRel == "" {
		destRel = filepath.Base(src)
	}
	dest, err := r.path(destRel)
	if err != nil {
		return err
	}
	if r.ws.FS.IsDir(src) {
		return r.ws.FS.CopyTree(src, dest)
	}
	return r.ws.FS.CopyFile(src, dest)
}
