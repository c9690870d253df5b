package main

import (
	"context"
	"sort"

	"github.com/felixgeelhaar/qgsmg/internal/app"
)

// action is a maintenance command reachable as the single positional
// argument of the root command.
type action struct {
	help string
	run  func(ctx context.Context, a *app.App) error
}

// actions is the static registry consulted before a name is treated as a
// recipe target.
var actions = map[string]action{
	"purgecache": {
		help: "remove downloaded sources, keep build outputs",
		run:  func(ctx context.Context, a *app.App) error { return a.PurgeCache(ctx) },
	},
	"distclean": {
		help: "wipe the cache",
		run:  func(ctx context.Context, a *app.App) error { return a.DistClean(ctx) },
	},
}

func actionNames() []string {
	names := make([]string, 0, len(actions))
	for name, act := range actions {
		names = append(names, name+"\t"+act.help)
	}
	sort.Strings(names)
	return names
}

// dispatch runs a registered action, or builds name as a target.
func dispatch(ctx context.Context, a *app.App, name string) error {
	if act, ok := actions[name]; ok {
		return act.run(ctx, a)
	}
	_, err := a.Build(ctx, name, app.BuildOptions{})
	return err
}
