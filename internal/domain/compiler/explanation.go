package compiler

// Explanation describes what a step builds and how.
// It backs the `plan` and `resolve --explain` output.
type Explanation struct {
	summary    string
	detail     string
	sources    []string
	actions    []string
	provenance string
}

// NewExplanation creates a new Explanation.
func NewExplanation(summary, detail string, sources []string) Explanation {
	return Explanation{
		summary: summary,
		detail:  detail,
		sources: cloneStrings(sources),
	}
}

// Summary returns a brief description of what the step does.
func (e Explanation) Summary() string {
	return e.summary
}

// Detail returns the build strategy and notable flags.
func (e Explanation) Detail() string {
	return e.detail
}

// Sources returns the upstream locations the step downloads or checks out.
func (e Explanation) Sources() []string {
	return cloneStrings(e.sources)
}

// Actions returns the prepare actions in the order they run.
func (e Explanation) Actions() []string {
	return cloneStrings(e.actions)
}

// Provenance returns the recipe file that defined this step.
func (e Explanation) Provenance() string {
	return e.provenance
}

// WithActions returns a new Explanation with actions set.
func (e Explanation) WithActions(actions []string) Explanation {
	e.actions = cloneStrings(actions)
	return e
}

// WithProvenance returns a new Explanation with provenance set.
func (e Explanation) WithProvenance(provenance string) Explanation {
	e.provenance = provenance
	return e
}

func cloneStrings(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}
