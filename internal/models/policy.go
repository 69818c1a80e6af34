package models

// ToolAccessMode selects how a PolicyProfile's AllowedTools/DeniedTools are
// interpreted (spec.md 3 "Policy profile").
type ToolAccessMode string

const (
	ToolAccessWhitelist ToolAccessMode = "whitelist"
	ToolAccessAll       ToolAccessMode = "all"
)

// BashMode controls what shell commands a profile permits.
type BashMode string

const (
	BashDisabled   BashMode = "disabled"
	BashReadOnly   BashMode = "read_only"
	BashFull       BashMode = "full"
	BashTaskScoped BashMode = "task_scoped"
)

// BashWriteProtection controls whether bash commands that would mutate
// files are specially gated even when BashMode otherwise allows them.
type BashWriteProtection string

const (
	WriteProtectionOff               BashWriteProtection = "off"
	WriteProtectionBlockFileMutation BashWriteProtection = "block_file_mutation"
)

// ApprovalScope names the scopes an approval configuration may cover. Left
// as a free-form string map since the approval subsystem itself is an
// external collaborator (spec.md 1 "Out of scope").
type ApprovalConfig struct {
	RequireApprovalFor []string
}

// PolicyProfile is a named bundle of tool-access, bash-mode, and
// approval-scope settings (spec.md 3, 4.B).
type PolicyProfile struct {
	ToolAccessMode      ToolAccessMode
	AllowedTools        []string
	DeniedTools         []string
	BashMode            BashMode
	BashWriteProtection BashWriteProtection
	Approval            *ApprovalConfig
}

// Clone returns a deep copy so callers can mutate additively/subtractively
// without aliasing the profile they resolved from.
func (p PolicyProfile) Clone() PolicyProfile {
	c := p
	c.AllowedTools = append([]string(nil), p.AllowedTools...)
	c.DeniedTools = append([]string(nil), p.DeniedTools...)
	if p.Approval != nil {
		approval := *p.Approval
		approval.RequireApprovalFor = append([]string(nil), p.Approval.RequireApprovalFor...)
		c.Approval = &approval
	}
	return c
}

// ProfileSource records how a profile was chosen, for PolicyResolution.Metadata.
type ProfileSource string

const (
	SourceExplicit         ProfileSource = "explicit"
	SourceWorkerCapability ProfileSource = "worker-capability"
	SourceTaskType         ProfileSource = "task-type"
	SourceDefault          ProfileSource = "default"
)

// PolicyMetadata records how a profile was resolved and which legacy fields
// contributed (spec.md 4.B).
type PolicyMetadata struct {
	Source           ProfileSource
	LegacyFieldsUsed []string
	Warnings         []string
}

// PolicyResolution is the output of the policy engine's Resolve operation.
type PolicyResolution struct {
	ProfileName string
	Profile     PolicyProfile
	Metadata    PolicyMetadata
}

// ToolAuthorization is the verdict from isToolAllowed (spec.md 4.B).
type ToolAuthorization struct {
	Allowed bool
	Reason  string
}

// BashAuthorization is the verdict from evaluateBash (spec.md 4.B), along
// with the single file target extracted for read-only verification when
// the command is a simple file-reading command.
type BashAuthorization struct {
	Allowed    bool
	Reason     string
	FileTarget string // "" when not extractable
}
