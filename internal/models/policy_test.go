package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPolicyProfileCloneDeepCopiesSlicesAndApproval(t *testing.T) {
	p := PolicyProfile{
		ToolAccessMode: ToolAccessWhitelist,
		AllowedTools:   []string{"Read"},
		DeniedTools:    []string{"Bash"},
		Approval:       &ApprovalConfig{RequireApprovalFor: []string{"Write"}},
	}

	clone := p.Clone()
	clone.AllowedTools[0] = "Mutated"
	clone.Approval.RequireApprovalFor[0] = "Mutated"

	assert.Equal(t, "Read", p.AllowedTools[0])
	assert.Equal(t, "Write", p.Approval.RequireApprovalFor[0])
}

func TestPolicyProfileCloneHandlesNilApproval(t *testing.T) {
	p := PolicyProfile{AllowedTools: []string{"Read"}}
	clone := p.Clone()
	assert.Nil(t, clone.Approval)
}
