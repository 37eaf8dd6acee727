package rules

import (
	"errors"
	"strings"
)

// Violation describes a single business rule that rejected a transition.
type Violation struct {
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// Violations is the error returned when one or more rules fail.
type Violations []Violation

func (v Violations) Error() string {
	if len(v) == 0 {
		return "business rules violated"
	}

	parts := make([]string, 0, len(v))
	for _, violation := range v {
		parts = append(parts, violation.Rule+": "+violation.Message)
	}
	return "business rules violated: " + strings.Join(parts, "; ")
}

// Names returns the rule identifiers in the order they failed.
func (v Violations) Names() []string {
	names := make([]string, 0, len(v))
	for _, violation := range v {
		names = append(names, violation.Rule)
	}
	return names
}

func (v Violations) Has(rule string) bool {
	for _, violation := range v {
		if violation.Rule == rule {
			return true
		}
	}
	return false
}

// Rule pairs a check with the violation reported when it fails.
type Rule struct {
	Check     func() bool
	Violation Violation
}

// Apply evaluates every rule and returns Violations for the ones that failed.
func Apply(rules ...Rule) error {
	var violations Violations

	for _, rule := range rules {
		if !rule.Check() {
			violations = append(violations, rule.Violation)
		}
	}

	if len(violations) == 0 {
		return nil
	}
	return violations
}

// Extract returns the Violations wrapped in err, or nil.
func Extract(err error) Violations {
	if err == nil {
		return nil
	}

	var v Violations
	if errors.As(err, &v) {
		return v
	}
	return nil
}

func IsViolation(err error) bool {
	return Extract(err) != nil
}
