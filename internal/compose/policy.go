// internal/compose/policy.go
package compose

import (
	"fmt"
	"strings"

	"github.com/solatis/fieldcomp/internal/types"
)

/*
 * Grouping compatibility policies.
 *
 * A policy decides whether a candidate value may join a combination given the
 * grouping established by values already chosen on the current path, and which
 * grouping to carry forward:
 *
 *   SameGroupOnly:         compatible iff groupings equal (absent == absent)
 *   GroupedWithNonGrouped: compatible iff either side absent, or equal
 *   IgnoreGroups:          always compatible, never carries a grouping
 *
 * The set is closed, so dispatch is a switch over the enum.
 */

// GroupingPolicy selects how groupings constrain combinations.
type GroupingPolicy int

const (
	GroupedWithNonGrouped GroupingPolicy = iota
	SameGroupOnly
	IgnoreGroups
)

// ParseGroupingPolicy maps a configuration name to a policy.
// Empty input selects the default, GroupedWithNonGrouped. Matching is case-insensitive.
func ParseGroupingPolicy(name string) (GroupingPolicy, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "", types.PolicyGroupedWithNonGrouped:
		return GroupedWithNonGrouped, nil
	case types.PolicySameGroupOnly:
		return SameGroupOnly, nil
	case types.PolicyIgnoreGroups:
		return IgnoreGroups, nil
	default:
		return GroupedWithNonGrouped, fmt.Errorf("%w: %q", types.ErrUnknownGroupingPolicy, name)
	}
}

// String returns the configuration name of the policy.
func (p GroupingPolicy) String() string {
	switch p {
	case SameGroupOnly:
		return types.PolicySameGroupOnly
	case IgnoreGroups:
		return types.PolicyIgnoreGroups
	default:
		return types.PolicyGroupedWithNonGrouped
	}
}

// Compatible reports whether candidate may be combined under context.
func (p GroupingPolicy) Compatible(context, candidate *types.Grouping) bool {
	switch p {
	case IgnoreGroups:
		return true
	case SameGroupOnly:
		return types.SameGrouping(context, candidate)
	default:
		return context == nil || candidate == nil || *context == *candidate
	}
}

// Select returns the grouping to propagate after candidate joins context.
func (p GroupingPolicy) Select(context, candidate *types.Grouping) *types.Grouping {
	if p == IgnoreGroups {
		return nil
	}
	if context != nil {
		return context
	}
	return candidate
}
