package buildinfo

import (
	"fmt"

	"golang.org/x/mod/semver"
)

// Assessment is the staleness verdict for one built step.
type Assessment struct {
	Library string
	Stale   bool
	Reasons []string
}

// Assess compares a step's record with the version the recipe now asks for
// and with the records of the steps it salts from. A step is stale when a
// salt source finished after it or when the versions differ. Assess only
// reports; it never invalidates anything.
func Assess(rec Record, wantVersion string, salts map[string]Record) Assessment {
	a := Assessment{Library: rec.Library}

	have, want := Canonical(rec.Version), Canonical(wantVersion)
	if have != "" && want != "" && semver.Compare(have, want) != 0 {
		a.Reasons = append(a.Reasons, fmt.Sprintf("built %s, recipe wants %s", have, want))
	}

	for _, name := range rec.Salts {
		src, ok := salts[name]
		if !ok {
			a.Reasons = append(a.Reasons, fmt.Sprintf("salt source %s has no build record", name))
			continue
		}
		if src.Finished.After(rec.Finished) {
			a.Reasons = append(a.Reasons, fmt.Sprintf("salt source %s was rebuilt after it", name))
		}
	}

	a.Stale = len(a.Reasons) > 0
	return a
}
