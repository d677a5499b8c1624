package discovery

import (
	"regexp"

	"github.com/jtallon/capindex-mcp/pkg/types"
)

// PatternRule links elements whose raw text matches a source/target
// expression pair. Rules run purely over the already-scanned records; they
// have no dependency on scoring or on the builder.
type PatternRule struct {
	Name   string
	Kind   types.RelationKind
	Weight float64

	// Source must match the source element's raw text, Target the target
	// element's raw text.
	Source *regexp.Regexp
	Target *regexp.Regexp
}

// DefaultPatternRules is the built-in rule table. Expressions are matched
// against case-folded raw text.
func DefaultPatternRules() []PatternRule {
	return []PatternRule{
		{
			Name:   "troubleshooter-for-failure",
			Kind:   types.RelationHelpsDebug,
			Weight: 0.7,
			Source: regexp.MustCompile(`(troubleshoot|diagnos\w*|remediat\w*|debug\w*)`),
			Target: regexp.MustCompile(`(fail\w*|error\w*|crash\w*|broken)`),
		},
		{
			Name:   "docker-auth-remediation",
			Kind:   types.RelationHelpsDebug,
			Weight: 0.85,
			Source: regexp.MustCompile(`docker.*auth.*(fix|token|credential)`),
			Target: regexp.MustCompile(`docker.*auth.*fail`),
		},
		{
			Name:   "setup-before-advanced",
			Kind:   types.RelationPrerequisiteFor,
			Weight: 0.6,
			Source: regexp.MustCompile(`(getting started|setup|install\w*|configur\w*)`),
			Target: regexp.MustCompile(`(advanced|expert|deep dive|optimiz\w*)`),
		},
		{
			Name:   "conflicting-guidance",
			Kind:   types.RelationContradicts,
			Weight: 0.5,
			Source: regexp.MustCompile(`(never|avoid|do not|don't) use`),
			Target: regexp.MustCompile(`(always|prefer|recommended) use`),
		},
	}
}
