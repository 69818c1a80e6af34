// Package policy resolves the tool-access and bash-authorization rules an
// agent runs under, and answers the two authorization questions
// (isToolAllowed, evaluateBash) every tool call is checked against before it
// runs. Grounded on the validation/error-reporting style of
// internal/agent/validation.go (ValidationError with an "available options"
// list) and the additive-merge config resolution internal/config/config.go
// already does for YAML overlays.
package policy

import (
	"fmt"

	"github.com/swarmforge/swarmcore/internal/models"
)

// WorkerCapabilities carries the worker-side signals that can steer profile
// selection and extend whichever profile is chosen.
type WorkerCapabilities struct {
	// Capability, if non-empty, is looked up against the engine's
	// capability->profile table (metadata.Source == "worker-capability").
	Capability string
	// ExtraTools are added to AllowedTools and removed from DeniedTools on
	// the resolved profile — explicit opt-in overrides denial.
	ExtraTools []string
	// AllowedTools/DeniedTools are the legacy per-worker fields promoted
	// during legacy fallback.
	AllowedTools []string
	DeniedTools  []string
}

// SandboxConfig carries the legacy global/sandbox fields that legacy
// fallback promotes into profile fields.
type SandboxConfig struct {
	GlobalDeniedTools        []string
	BashMode                 models.BashMode
	BashWriteProtection      models.BashWriteProtection
	BlockFileCreationViaBash bool
}

// ProfileExtension is an additive add/remove overlay applied on top of the
// selected profile, before legacy fallback.
type ProfileExtension struct {
	AddAllowedTools    []string
	RemoveAllowedTools []string
	AddDeniedTools     []string
	RemoveDeniedTools  []string
}

// ResolveInput is the engine's Resolve input (spec.md 4.B).
type ResolveInput struct {
	ExplicitProfile   string
	Worker            *WorkerCapabilities
	TaskType          models.TaskType
	Sandbox           SandboxConfig
	SwarmContext      bool
	LegacyFallback    bool
	ProfileExtensions *ProfileExtension
}

// Engine resolves policy profiles from named defaults plus the selection
// tables that map worker capabilities and task types to a profile name.
type Engine struct {
	profiles            map[string]models.PolicyProfile
	capabilityProfiles  map[string]string
	taskTypeProfiles    map[models.TaskType]string
	defaultProfileName  string
	swarmDefaultProfile string
}

// NewEngine builds an engine from the four default profiles and their
// selection tables. Callers with custom profiles should construct Engine
// directly.
func NewEngine() *Engine {
	return &Engine{
		profiles:            DefaultProfiles(),
		capabilityProfiles:  DefaultCapabilityProfiles(),
		taskTypeProfiles:    DefaultTaskTypeProfiles(),
		defaultProfileName:  ProfileResearchSafe,
		swarmDefaultProfile: ProfileCodeStrictBash,
	}
}

// Resolve implements spec.md 4.B's resolution order: base default profile
// <- requested profile <- profile extensions (additive) <- legacy fallback.
func (e *Engine) Resolve(in ResolveInput) (models.PolicyResolution, error) {
	profileName, source := e.selectProfile(in)

	selected, ok := e.profiles[profileName]
	var warnings []string
	if !ok {
		warnings = append(warnings, fmt.Sprintf("policy: unknown profile %q, falling back to %q", profileName, e.defaultProfileName))
		profileName = e.defaultProfileName
		selected = e.profiles[e.defaultProfileName]
		source = models.SourceDefault
	}

	merged := selected.Clone()

	if in.ProfileExtensions != nil {
		applyExtension(&merged, *in.ProfileExtensions)
	}

	var legacyFields []string
	if in.LegacyFallback {
		legacyFields, warnings = applyLegacyFallback(&merged, in.Sandbox, in.Worker, warnings)
	}

	if in.Worker != nil && len(in.Worker.ExtraTools) > 0 {
		addAllowed(&merged, in.Worker.ExtraTools...)
		removeDenied(&merged, in.Worker.ExtraTools...)
	}

	return models.PolicyResolution{
		ProfileName: profileName,
		Profile:     merged,
		Metadata: models.PolicyMetadata{
			Source:           source,
			LegacyFieldsUsed: legacyFields,
			Warnings:         warnings,
		},
	}, nil
}

func (e *Engine) selectProfile(in ResolveInput) (string, models.ProfileSource) {
	if in.ExplicitProfile != "" {
		return in.ExplicitProfile, models.SourceExplicit
	}
	if in.Worker != nil && in.Worker.Capability != "" {
		if name, ok := e.capabilityProfiles[in.Worker.Capability]; ok {
			return name, models.SourceWorkerCapability
		}
	}
	if name, ok := e.taskTypeProfiles[in.TaskType]; ok {
		return name, models.SourceTaskType
	}
	if in.SwarmContext {
		return e.swarmDefaultProfile, models.SourceDefault
	}
	return e.defaultProfileName, models.SourceDefault
}

func applyExtension(p *models.PolicyProfile, ext ProfileExtension) {
	addAllowed(p, ext.AddAllowedTools...)
	removeAllowed(p, ext.RemoveAllowedTools...)
	addDenied(p, ext.AddDeniedTools...)
	removeDenied(p, ext.RemoveDeniedTools...)
}

// applyLegacyFallback promotes the old config fields into profile fields,
// recording one warning and one LegacyFieldsUsed entry per field that
// actually contributed (spec.md 4.B).
func applyLegacyFallback(p *models.PolicyProfile, sandbox SandboxConfig, worker *WorkerCapabilities, warnings []string) ([]string, []string) {
	var used []string

	if len(sandbox.GlobalDeniedTools) > 0 {
		addDenied(p, sandbox.GlobalDeniedTools...)
		used = append(used, "global.deniedTools")
		warnings = append(warnings, "policy: legacy field global.deniedTools promoted into profile.deniedTools")
	}
	if sandbox.BashMode != "" {
		p.BashMode = sandbox.BashMode
		used = append(used, "sandbox.bashMode")
		warnings = append(warnings, "policy: legacy field sandbox.bashMode promoted into profile.bashMode")
	}
	if sandbox.BashWriteProtection != "" {
		p.BashWriteProtection = sandbox.BashWriteProtection
		used = append(used, "sandbox.bashWriteProtection")
		warnings = append(warnings, "policy: legacy field sandbox.bashWriteProtection promoted into profile.bashWriteProtection")
	}
	if sandbox.BlockFileCreationViaBash {
		p.BashWriteProtection = models.WriteProtectionBlockFileMutation
		used = append(used, "sandbox.blockFileCreationViaBash")
		warnings = append(warnings, "policy: legacy field sandbox.blockFileCreationViaBash promoted into profile.bashWriteProtection")
	}
	if worker != nil && len(worker.AllowedTools) > 0 {
		addAllowed(p, worker.AllowedTools...)
		used = append(used, "worker.allowedTools")
		warnings = append(warnings, "policy: legacy field worker.allowedTools promoted into profile.allowedTools")
	}
	if worker != nil && len(worker.DeniedTools) > 0 {
		addDenied(p, worker.DeniedTools...)
		used = append(used, "worker.deniedTools")
		warnings = append(warnings, "policy: legacy field worker.deniedTools promoted into profile.deniedTools")
	}

	return used, warnings
}

func addAllowed(p *models.PolicyProfile, tools ...string) {
	for _, t := range tools {
		if !contains(p.AllowedTools, t) {
			p.AllowedTools = append(p.AllowedTools, t)
		}
	}
}

func removeAllowed(p *models.PolicyProfile, tools ...string) {
	p.AllowedTools = remove(p.AllowedTools, tools)
}

func addDenied(p *models.PolicyProfile, tools ...string) {
	for _, t := range tools {
		if !contains(p.DeniedTools, t) {
			p.DeniedTools = append(p.DeniedTools, t)
		}
	}
}

func removeDenied(p *models.PolicyProfile, tools ...string) {
	p.DeniedTools = remove(p.DeniedTools, tools)
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func remove(list []string, victims []string) []string {
	if len(list) == 0 || len(victims) == 0 {
		return list
	}
	out := list[:0:0]
	for _, item := range list {
		if !contains(victims, item) {
			out = append(out, item)
		}
	}
	return out
}

// IsToolAllowed implements spec.md 4.B's isToolAllowed: in whitelist mode a
// tool not in AllowedTools is denied outright; otherwise an explicit denial
// wins; everything else is allowed.
func IsToolAllowed(name string, profile models.PolicyProfile) models.ToolAuthorization {
	if profile.ToolAccessMode == models.ToolAccessWhitelist && !contains(profile.AllowedTools, name) {
		return models.ToolAuthorization{Allowed: false, Reason: fmt.Sprintf("%q is not in the profile's tool allowlist", name)}
	}
	if contains(profile.DeniedTools, name) {
		return models.ToolAuthorization{Allowed: false, Reason: fmt.Sprintf("%q is explicitly denied by the profile", name)}
	}
	return models.ToolAuthorization{Allowed: true, Reason: "allowed"}
}
