package spawner

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// blackboardFindingLimit caps how many sibling findings are folded into a
// child's prompt (spec.md 4.G "up to 5 recent high-confidence findings").
const blackboardFindingLimit = 5

// BlackboardFinding is one high-confidence observation a sibling agent
// recorded for the swarm to share, ranked by Confidence then recency.
type BlackboardFinding struct {
	AgentName  string
	Summary    string
	Confidence float64
	At         time.Time
}

// Constraints narrows what a spawned child should focus on (spec.md 4.G
// "focus/exclude/deliverables/timebox block").
type Constraints struct {
	MaxTokens    int64
	Focus        []string
	Exclude      []string
	Deliverables []string
	Timebox      time.Duration
}

// PromptInputs gathers everything BuildPrompt concatenates, in the fixed
// order spec.md 4.G specifies.
type PromptInputs struct {
	SystemPrompt               string
	ParentInPlanMode           bool
	BlackboardFindings         []BlackboardFinding
	PendingPlanFiles           []string
	ResourceTokens             int64
	ResourceDuration           time.Duration
	Constraints                *Constraints
	ParentComplexityNontrivial bool
	DelegationSpec             string
	QualityPrompt              string
}

// BuildPrompt concatenates the blocks spec.md 4.G names, in order: system
// prompt, plan-mode addition, blackboard context, pending-plan file list,
// resource-awareness block, focus/exclude/deliverables/timebox block,
// delegation spec (only when the parent's last complexity assessment was
// nontrivial), quality prompt. Any block with nothing to say is omitted
// entirely rather than emitted empty.
func BuildPrompt(in PromptInputs) string {
	var blocks []string

	if in.SystemPrompt != "" {
		blocks = append(blocks, in.SystemPrompt)
	}

	if in.ParentInPlanMode {
		blocks = append(blocks, "You are operating in plan mode: every write-effecting tool call will be queued for approval rather than executed immediately. Propose changes; do not assume they have taken effect.")
	}

	if b := blackboardBlock(in.BlackboardFindings); b != "" {
		blocks = append(blocks, b)
	}

	if len(in.PendingPlanFiles) > 0 {
		blocks = append(blocks, "Files already queued in the pending plan (avoid duplicating this work):\n- "+strings.Join(in.PendingPlanFiles, "\n- "))
	}

	if in.ResourceTokens > 0 || in.ResourceDuration > 0 {
		blocks = append(blocks, resourceBlock(in.ResourceTokens, in.ResourceDuration))
	}

	if c := in.Constraints; c != nil {
		if b := constraintsBlock(*c); b != "" {
			blocks = append(blocks, b)
		}
	}

	if in.ParentComplexityNontrivial && in.DelegationSpec != "" {
		blocks = append(blocks, in.DelegationSpec)
	}

	if in.QualityPrompt != "" {
		blocks = append(blocks, in.QualityPrompt)
	}

	return strings.Join(blocks, "\n\n")
}

func blackboardBlock(findings []BlackboardFinding) string {
	if len(findings) == 0 {
		return ""
	}
	sorted := append([]BlackboardFinding(nil), findings...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Confidence != sorted[j].Confidence {
			return sorted[i].Confidence > sorted[j].Confidence
		}
		return sorted[i].At.After(sorted[j].At)
	})
	if len(sorted) > blackboardFindingLimit {
		sorted = sorted[:blackboardFindingLimit]
	}

	var sb strings.Builder
	sb.WriteString("Findings from sibling agents working on related tasks:\n")
	for _, f := range sorted {
		fmt.Fprintf(&sb, "- [%s] %s\n", f.AgentName, f.Summary)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func resourceBlock(tokens int64, d time.Duration) string {
	var sb strings.Builder
	sb.WriteString("Resource awareness: ")
	if tokens > 0 {
		fmt.Fprintf(&sb, "you have roughly %d tokens available. ", tokens)
	}
	if d > 0 {
		fmt.Fprintf(&sb, "you have roughly %s before a wrap-up is requested. ", d.Round(time.Second))
	}
	sb.WriteString("When time or budget runs low you will be asked to stop and summarize instead of continuing to explore.")
	return sb.String()
}

func constraintsBlock(c Constraints) string {
	var sb strings.Builder
	wrote := false
	write := func(label string, items []string) {
		if len(items) == 0 {
			return
		}
		if wrote {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "%s: %s", label, strings.Join(items, ", "))
		wrote = true
	}
	write("Focus on", c.Focus)
	write("Do not touch", c.Exclude)
	write("Deliverables", c.Deliverables)
	if c.Timebox > 0 {
		if wrote {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "Timebox: finish within %s", c.Timebox.Round(time.Second))
		wrote = true
	}
	if !wrote {
		return ""
	}
	return sb.String()
}
