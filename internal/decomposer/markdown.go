package decomposer

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/swarmforge/swarmcore/internal/models"
)

var markdownParser = goldmark.New()

// goalHeadings walks a goal's markdown structure (a task description or
// goalContext written as a plan document) and returns its level-2 section
// titles in document order. Used by the heuristic fallback (spec.md 4.F)
// to turn a structured goal document into one subtask per section instead
// of the generic fixed skeleton, when the goal actually has that shape.
func goalHeadings(source string) []string {
	src := []byte(source)
	doc := markdownParser.Parser().Parse(text.NewReader(src))

	var headings []string
	ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		heading, ok := n.(*ast.Heading)
		if !ok || heading.Level != 2 {
			return ast.WalkContinue, nil
		}
		if title := strings.TrimSpace(extractHeadingText(heading, src)); title != "" {
			headings = append(headings, title)
		}
		return ast.WalkContinue, nil
	})
	return headings
}

// extractHeadingText concatenates a heading's direct text children.
func extractHeadingText(n ast.Node, source []byte) string {
	var buf bytes.Buffer
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			buf.Write(t.Segment.Value(source))
		}
	}
	return buf.String()
}

// markdownSkeleton turns a goal document's level-2 sections into a
// sequential chain of subtasks, one per section, each depending on the
// one before it. Returns nil when the goal has fewer than two sections,
// signaling the caller should fall back to the keyword-based skeletons.
func markdownSkeleton(goalContext string) []models.SmartSubtask {
	headings := goalHeadings(goalContext)
	if len(headings) < 2 {
		return nil
	}

	subtasks := make([]models.SmartSubtask, 0, len(headings)+1)
	subtasks = append(subtasks, newSubtask(1, "Plan: "+headings[0], models.TaskDesign))
	prev := subtasks[0].ID
	for i, title := range headings {
		t := newSubtask(i+2, title, inferTaskType(title), prev)
		subtasks = append(subtasks, t)
		prev = t.ID
	}
	verify := newSubtask(len(subtasks)+1, "Verify: "+headings[len(headings)-1], models.TaskTest, prev)
	return append(subtasks, verify)
}
