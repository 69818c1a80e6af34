package policy

import "github.com/swarmforge/swarmcore/internal/models"

// Default profile names (spec.md 3 "Policy profile").
const (
	ProfileResearchSafe   = "research-safe"
	ProfileCodeStrictBash = "code-strict-bash"
	ProfileCodeFull       = "code-full"
	ProfileReviewSafe     = "review-safe"
)

// DefaultProfiles returns the four named defaults spec.md 3 lists, keyed by
// name. "research-safe" doubles as the base default profile used when no
// other signal selects one.
func DefaultProfiles() map[string]models.PolicyProfile {
	return map[string]models.PolicyProfile{
		ProfileResearchSafe: {
			ToolAccessMode:      models.ToolAccessWhitelist,
			AllowedTools:        []string{"Read", "Grep", "Glob", "WebSearch", "WebFetch"},
			BashMode:            models.BashReadOnly,
			BashWriteProtection: models.WriteProtectionBlockFileMutation,
		},
		ProfileCodeStrictBash: {
			ToolAccessMode:      models.ToolAccessAll,
			DeniedTools:         []string{},
			BashMode:            models.BashTaskScoped,
			BashWriteProtection: models.WriteProtectionBlockFileMutation,
		},
		ProfileCodeFull: {
			ToolAccessMode:      models.ToolAccessAll,
			DeniedTools:         []string{},
			BashMode:            models.BashFull,
			BashWriteProtection: models.WriteProtectionOff,
		},
		ProfileReviewSafe: {
			ToolAccessMode:      models.ToolAccessWhitelist,
			AllowedTools:        []string{"Read", "Grep", "Glob"},
			BashMode:            models.BashDisabled,
			BashWriteProtection: models.WriteProtectionBlockFileMutation,
		},
	}
}

// DefaultTaskTypeProfiles maps task types to the profile a bare task-type
// signal should select (metadata.Source == "task-type").
func DefaultTaskTypeProfiles() map[models.TaskType]string {
	return map[models.TaskType]string{
		models.TaskResearch:  ProfileResearchSafe,
		models.TaskAnalysis:  ProfileResearchSafe,
		models.TaskDesign:    ProfileResearchSafe,
		models.TaskReview:    ProfileReviewSafe,
		models.TaskImplement: ProfileCodeStrictBash,
		models.TaskFix:       ProfileCodeStrictBash,
		models.TaskTest:      ProfileCodeStrictBash,
		models.TaskRefactor:  ProfileCodeStrictBash,
		models.TaskIntegrate: ProfileCodeStrictBash,
		models.TaskDeploy:    ProfileCodeFull,
		models.TaskDocument:  ProfileCodeStrictBash,
		models.TaskMerge:     ProfileCodeFull,
	}
}

// DefaultCapabilityProfiles maps a worker-capability tag to the profile it
// should select (metadata.Source == "worker-capability"); checked before
// task-type.
func DefaultCapabilityProfiles() map[string]string {
	return map[string]string{
		"read-only":   ProfileResearchSafe,
		"full-access": ProfileCodeFull,
		"reviewer":    ProfileReviewSafe,
	}
}

// bashScopedTaskTypes are the task types task_scoped expands to read_only
// for (spec.md 4.B); every other task type expands to disabled.
var bashScopedTaskTypes = map[models.TaskType]bool{
	models.TaskImplement: true,
	models.TaskTest:      true,
	models.TaskRefactor:  true,
	models.TaskIntegrate: true,
	models.TaskDeploy:    true,
	models.TaskDocument:  true,
}
