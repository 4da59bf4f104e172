package planner

import (
	"encoding/json"
	"strings"

	"budgetplanner/internal/core"
)

// wirePlan mirrors the response format requested in the prompt. Pointers mark
// fields whose absence changes how the draft is validated or repaired.
type wirePlan struct {
	Categories      []wireCategory `json:"categories"`
	Summary         *wireSummary   `json:"summary"`
	Recommendations []string       `json:"recommendations"`
}

type wireCategory struct {
	Name        string      `json:"name"`
	Allocated   *core.Money `json:"allocated"`
	Priority    string      `json:"priority"`
	Description string      `json:"description"`
	Tips        []string    `json:"tips"`
	Percentage  float64     `json:"percentage"`
}

type wireSummary struct {
	TotalAllocated *core.Money `json:"totalAllocated"`
	Remaining      core.Money  `json:"remaining"`
	SavingsRate    float64     `json:"savingsRate"`
	KeyInsights    []string    `json:"keyInsights"`
}

// BuildPlanDraft never fails: output that cannot be parsed or repaired is
// replaced by the fallback plan.
func BuildPlanDraft(raw string) (core.PlanDraft, core.PlanSource) {
	if draft, ok := ParsePlan(raw); ok {
		return draft, core.SourceAI
	}
	return FallbackPlan(), core.SourceFallback
}

// ParsePlan extracts the first JSON object in raw and repairs it into a draft.
// It reports false when no object has the required shape.
func ParsePlan(raw string) (core.PlanDraft, bool) {
	wire, ok := decodeFirstObject(raw)
	if !ok {
		return core.PlanDraft{}, false
	}
	if len(wire.Categories) == 0 || wire.Summary == nil {
		return core.PlanDraft{}, false
	}

	draft := core.PlanDraft{
		Categories:      make([]core.BudgetCategory, 0, len(wire.Categories)),
		Recommendations: nonNil(wire.Recommendations),
	}
	for _, c := range wire.Categories {
		if c.Allocated == nil {
			return core.PlanDraft{}, false
		}
		priority, _ := core.ParsePriority(c.Priority)
		draft.Categories = append(draft.Categories, core.BudgetCategory{
			Name:        strings.TrimSpace(c.Name),
			Allocated:   *c.Allocated,
			Priority:    priority,
			Description: c.Description,
			Tips:        nonNil(c.Tips),
			Percentage:  clampPercentage(c.Percentage),
		})
	}
	if err := draft.Validate(); err != nil {
		return core.PlanDraft{}, false
	}

	draft.Summary = core.PlanSummary{
		Remaining:   wire.Summary.Remaining,
		SavingsRate: wire.Summary.SavingsRate,
		KeyInsights: nonNil(wire.Summary.KeyInsights),
	}
	if wire.Summary.TotalAllocated != nil {
		draft.Summary.TotalAllocated = *wire.Summary.TotalAllocated
	} else {
		draft.Summary.TotalAllocated = draft.SumAllocated()
	}
	return draft, true
}

// decodeFirstObject tries each balanced {...} span in order of its opening
// brace and decodes the first one that is valid JSON.
func decodeFirstObject(raw string) (wirePlan, bool) {
	for _, sp := range braceSpans(raw) {
		var wire wirePlan
		if json.Unmarshal([]byte(raw[sp.open:sp.close+1]), &wire) == nil {
			return wire, true
		}
	}
	return wirePlan{}, false
}

type span struct{ open, close int }

// braceSpans pairs braces in a single pass and returns the balanced spans
// ordered by opening brace. Braces inside JSON strings are ignored; quotes
// outside any brace are prose. Braces left open at the end are dropped.
func braceSpans(s string) []span {
	var (
		spans    []span
		stack    []int
		inString bool
		escaped  bool
	)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = len(stack) > 0
		case '{':
			stack = append(stack, len(spans))
			spans = append(spans, span{open: i, close: -1})
		case '}':
			if len(stack) == 0 {
				continue
			}
			spans[stack[len(stack)-1]].close = i
			stack = stack[:len(stack)-1]
		}
	}

	balanced := spans[:0]
	for _, sp := range spans {
		if sp.close >= 0 {
			balanced = append(balanced, sp)
		}
	}
	return balanced
}

func clampPercentage(p float64) float64 {
	return min(max(p, 0), 100)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
