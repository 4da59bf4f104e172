package planner

import (
	"bytes"
	"fmt"
	"sort"
	"text/template"

	"budgetplanner/internal/core"
)

// budgetPromptTemplate steers the model toward a single JSON object in the
// shape ParsePlan accepts.
const budgetPromptTemplate = `You are an experienced financial advisor. Build a detailed monthly budget allocation for this user.

TOTAL BUDGET: {{.TotalBudget}}
{{- if .UserName}}

USER: {{.UserName}}
{{- end}}

USER REQUIREMENTS: {{.Requirements}}

{{with .History -}}
SPENDING HISTORY (last 3 months):
- Total spent: {{.Total}}
- Average spending by category: {{range $i, $a := .Averages}}{{if $i}}, {{end}}{{$a.Name}}: {{$a.Amount}}{{end}}
- Recent expenses: {{range $i, $e := .Recent}}{{if $i}}, {{end}}{{$e.Name}}: {{$e.Amount}}{{end}}
{{- else -}}
No spending history available.
{{- end}}

TASK: Produce a budget allocation that:
1. Covers essential expenses first (rent, food, utilities, transportation)
2. Leaves a reasonable amount for discretionary spending
3. Sets aside savings and an emergency fund
4. Takes the spending history and its patterns into account
5. Gives a specific amount for every category
6. Adds practical tips for every category

RESPONSE FORMAT (JSON only):
{
  "categories": [
    {
      "name": "Category Name",
      "allocated": 1000,
      "priority": "high|medium|low",
      "description": "What this covers",
      "tips": ["Tip 1", "Tip 2"],
      "percentage": 20
    }
  ],
  "summary": {
    "totalAllocated": 5000,
    "remaining": 0,
    "savingsRate": 10,
    "keyInsights": ["Insight 1", "Insight 2"]
  },
  "recommendations": ["Recommendation 1", "Recommendation 2"]
}

IMPORTANT:
- The allocated amounts must add up to the total budget
- Put at least 10% into savings
- Prioritize rent, food, utilities and transportation
- Keep the numbers realistic
- Make every tip specific and actionable
`

var budgetPrompt = template.Must(template.New("budget").Parse(budgetPromptTemplate))

// PromptInput is everything the prompt is rendered from.
type PromptInput struct {
	TotalBudget  core.Money
	Requirements string
	History      *core.SpendingSnapshot
	Profile      core.User
}

type amountView struct {
	Name   string
	Amount string
}

type historyView struct {
	Total    string
	Averages []amountView
	Recent   []amountView
}

type promptData struct {
	TotalBudget  string
	Requirements string
	UserName     string
	History      *historyView
}

// ComposePrompt renders the generation prompt. The same input always yields the same text.
func ComposePrompt(in PromptInput) (string, error) {
	data := promptData{
		TotalBudget:  in.TotalBudget.String(),
		Requirements: in.Requirements,
		UserName:     in.Profile.Name,
	}
	if h := in.History; h != nil && len(h.RecentExpenses) > 0 {
		view := &historyView{Total: h.TotalExpenses.String()}

		keys := make([]string, 0, len(h.CategoryAverages))
		for k := range h.CategoryAverages {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			view.Averages = append(view.Averages, amountView{Name: k, Amount: h.CategoryAverages[k].String()})
		}
		for _, e := range h.RecentExpenses {
			view.Recent = append(view.Recent, amountView{Name: e.Category, Amount: e.Amount.String()})
		}
		data.History = view
	}

	var buf bytes.Buffer
	if err := budgetPrompt.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render budget prompt: %w", err)
	}
	return buf.String(), nil
}
