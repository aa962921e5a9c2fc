package engine

import (
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
)

// Plan is the deterministic execution order for one run: pre-branching
// universal steps, class-scoped steps keyed by document class (spliced in
// once the class resolves), and post-branching universal steps. A plan with
// no branching step is valid; its class segment stays permanently empty.
type Plan struct {
	Pre       []Step
	ByClass   map[uuid.UUID][]Step
	Post      []Step
	Branching *Step
}

// BuildPlan partitions enabled steps into the three execution phases and
// sorts each phase by (order, id) ascending. Duplicate order values within a
// phase are a tolerated configuration state; the identifier tie-break keeps
// the plan deterministic. Returns ErrMultipleBranching when more than one
// enabled step is marked branching.
func BuildPlan(steps []Step) (*Plan, error) {
	plan := &Plan{ByClass: make(map[uuid.UUID][]Step)}

	for _, s := range steps {
		if !s.Enabled {
			continue
		}

		if s.Branching {
			if plan.Branching != nil {
				return nil, fmt.Errorf(
					"%w: %s and %s",
					ErrMultipleBranching, plan.Branching.Name, s.Name,
				)
			}
			branching := s
			plan.Branching = &branching
		}

		switch PhaseOf(s) {
		case PhaseClass:
			id := *s.DocumentClassID
			plan.ByClass[id] = append(plan.ByClass[id], s)
		case PhasePost:
			plan.Post = append(plan.Post, s)
		default:
			plan.Pre = append(plan.Pre, s)
		}
	}

	sortSteps(plan.Pre)
	sortSteps(plan.Post)
	for _, group := range plan.ByClass {
		sortSteps(group)
	}

	return plan, nil
}

// ClassSteps returns the ordered step subset for the resolved document class.
func (p *Plan) ClassSteps(classID uuid.UUID) []Step {
	return p.ByClass[classID]
}

// BaseTotal is the number of planned steps before class resolution adds the
// class-scoped segment.
func (p *Plan) BaseTotal() int {
	return len(p.Pre) + len(p.Post)
}

func sortSteps(steps []Step) {
	slices.SortStableFunc(steps, func(a, b Step) int {
		if a.Order != b.Order {
			return a.Order - b.Order
		}
		return strings.Compare(a.ID.String(), b.ID.String())
	})
}
