package decomposer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGoalHeadingsExtractsLevelTwoSections(t *testing.T) {
	doc := "# Overview\n\nSome intro text.\n\n## Set up the database\n\nbody\n\n## Wire the API\n\nbody\n\n### not a section\n"

	headings := goalHeadings(doc)

	assert.Equal(t, []string{"Set up the database", "Wire the API"}, headings)
}

func TestGoalHeadingsEmptyForPlainText(t *testing.T) {
	headings := goalHeadings("fix the login bug when the session expires")
	assert.Empty(t, headings)
}

func TestMarkdownSkeletonChainsSectionsSequentially(t *testing.T) {
	doc := "## Design the schema\n\n## Implement the migration\n\n## Test the rollout\n"

	subtasks := markdownSkeleton(doc)

	if assert.Len(t, subtasks, 5) {
		assert.Equal(t, "Plan: Design the schema", subtasks[0].Description)
		assert.Equal(t, "Design the schema", subtasks[1].Description)
		assert.Equal(t, "Implement the migration", subtasks[2].Description)
		assert.Equal(t, "Test the rollout", subtasks[3].Description)
		assert.Equal(t, "Verify: Test the rollout", subtasks[4].Description)

		for i := 1; i < len(subtasks); i++ {
			assert.Contains(t, subtasks[i].Dependencies, subtasks[i-1].ID)
		}
	}
}

func TestMarkdownSkeletonNilWhenFewerThanTwoSections(t *testing.T) {
	assert.Nil(t, markdownSkeleton("## Only one section"))
	assert.Nil(t, markdownSkeleton("no sections here at all"))
}
