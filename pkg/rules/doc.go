// Package rules provides the business-rule validator consulted before an item
// is purchased or cancelled.
//
// Rules follow a small declarative shape: a Check closure and the Violation
// reported when it returns false. Apply evaluates a list and returns a
// Violations error listing every failed rule, so callers see all problems at
// once rather than the first one.
//
//	err := rules.Apply(
//	    rules.Rule{Check: func() bool { return qty > 0 }, Violation: rules.Violation{Rule: "positive_quantity", Message: "..."}},
//	)
//	if v := rules.Extract(err); v != nil {
//	    fmt.Println(v.Names())
//	}
//
// CartValidator bundles the stock rules for the purchased and cancelled
// targets and satisfies lifecycle.Validator.
package rules
