// Package condition implements the closed set of auto-approval condition
// kinds together with a small expression grammar.  Policy evaluation is
// total: an expression with an unknown kind fails at parse time rather than
// being skipped at runtime.
package condition

import (
	"fmt"
	"time"

	"github.com/viant/toolbox"
)

// Supported condition kinds.
const (
	KindTimeWindow    = "window"
	KindGeo           = "geo"
	KindSecurityLevel = "security"
	KindResourceBound = "budget"
)

// Condition is a parsed, typed auto-approval condition.
type Condition struct {
	Kind string

	// time-window: minutes of day, inclusive..exclusive
	FromMinute int
	ToMinute   int

	// geo: permitted regions
	Regions []string

	// security-level and resource-bound
	Op        string
	Level     string
	Threshold float64
}

// Input carries the facts a condition is evaluated against. Attributes may
// override typed fields with loosely-typed values supplied by the caller
// (e.g. submit payload metadata); they are coerced on access.
type Input struct {
	Now           time.Time
	Region        string
	SecurityLevel string
	Budget        float64
	Attributes    map[string]interface{}
}

var securityRank = map[string]int{
	"public":       0,
	"internal":     1,
	"confidential": 2,
	"restricted":   3,
}

// Evaluate reports whether the condition holds for the supplied input.
func (c *Condition) Evaluate(input Input) (bool, error) {
	switch c.Kind {
	case KindTimeWindow:
		now := input.Now
		if raw, ok := input.Attributes["occurredAt"]; ok {
			at, err := toolbox.ToTime(raw, time.RFC3339)
			if err != nil {
				return false, fmt.Errorf("invalid occurredAt attribute: %w", err)
			}
			now = *at
		}
		minute := now.Hour()*60 + now.Minute()
		return minute >= c.FromMinute && minute < c.ToMinute, nil
	case KindGeo:
		for _, region := range c.Regions {
			if region == input.Region {
				return true, nil
			}
		}
		return false, nil
	case KindSecurityLevel:
		actual, ok := securityRank[input.SecurityLevel]
		if !ok {
			return false, fmt.Errorf("unknown security level %q", input.SecurityLevel)
		}
		return compareInt(actual, securityRank[c.Level], c.Op)
	case KindResourceBound:
		budget := input.Budget
		if raw, ok := input.Attributes["budget"]; ok {
			if err := toolbox.DefaultConverter.AssignConverted(&budget, raw); err != nil {
				return false, fmt.Errorf("invalid budget attribute: %w", err)
			}
		}
		return compareFloat(budget, c.Threshold, c.Op)
	}
	return false, fmt.Errorf("unsupported condition kind %q", c.Kind)
}

func compareInt(actual, threshold int, op string) (bool, error) {
	result, err := compareFloat(float64(actual), float64(threshold), op)
	return result, err
}

func compareFloat(actual, threshold float64, op string) (bool, error) {
	switch op {
	case "<":
		return actual < threshold, nil
	case "<=":
		return actual <= threshold, nil
	case ">":
		return actual > threshold, nil
	case ">=":
		return actual >= threshold, nil
	case "==":
		return actual == threshold, nil
	}
	return false, fmt.Errorf("unsupported operator %q", op)
}
