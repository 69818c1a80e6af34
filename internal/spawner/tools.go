package spawner

import (
	"fmt"

	"github.com/swarmforge/swarmcore/internal/models"
)

// toolCountThreshold is the tool-set size above which a recommendation
// engine, if present, trims to the top-ranked tools for the task at hand
// (spec.md 4.G).
const toolCountThreshold = 15

// ToolRanker ranks a candidate tool set for a given task type, most
// relevant first. An absent ranker simply skips the trimming step.
type ToolRanker interface {
	RankForTaskType(taskType models.TaskType, candidates []string) []string
}

// ErrNoToolsRemaining is returned by FilterTools when every candidate tool
// was removed by filtering or policy enforcement (spec.md 4.G).
var ErrNoToolsRemaining = fmt.Errorf("spawner: zero tools remain after filtering")

// FilterTools implements spec.md 4.G's tool-filtering pipeline: intersect
// the parent's tool universe with the agent's declared tools, optionally
// trim to the top-ranked tools for taskType when the intersection exceeds
// toolCountThreshold (always keeping spawnTools and anything the profile
// explicitly allows), then enforce the resolved profile (whitelist keeps
// only allowedTools; otherwise deniedTools are removed).
func FilterTools(parentTools, agentTools []string, ranker ToolRanker, taskType models.TaskType, spawnTools []string, profile models.PolicyProfile) ([]string, error) {
	base := intersect(parentTools, agentTools)

	if len(base) > toolCountThreshold && ranker != nil {
		base = trimToTopRanked(base, ranker, taskType, spawnTools, profile.AllowedTools)
	}

	filtered := enforceProfile(base, profile)

	if len(filtered) == 0 {
		return nil, ErrNoToolsRemaining
	}
	return filtered, nil
}

func intersect(a, b []string) []string {
	bSet := toSet(b)
	var out []string
	for _, t := range a {
		if _, ok := bSet[t]; ok {
			out = append(out, t)
		}
	}
	return out
}

// trimToTopRanked keeps the top toolCountThreshold-ranked tools, always
// preserving must-keep entries (spawn tools and anything the profile
// explicitly allows) regardless of rank.
func trimToTopRanked(base []string, ranker ToolRanker, taskType models.TaskType, mustKeepSets ...[]string) []string {
	mustKeep := make(map[string]struct{})
	for _, set := range mustKeepSets {
		for _, t := range set {
			mustKeep[t] = struct{}{}
		}
	}

	baseSet := toSet(base)
	ranked := ranker.RankForTaskType(taskType, base)

	kept := make(map[string]struct{})
	var out []string
	for _, t := range ranked {
		if _, inBase := baseSet[t]; !inBase || len(kept) >= toolCountThreshold {
			continue
		}
		kept[t] = struct{}{}
		out = append(out, t)
	}
	for _, t := range base {
		if _, already := kept[t]; already {
			continue
		}
		if _, must := mustKeep[t]; must {
			out = append(out, t)
		}
	}
	return out
}

func enforceProfile(tools []string, profile models.PolicyProfile) []string {
	if profile.ToolAccessMode == models.ToolAccessWhitelist {
		allowed := toSet(profile.AllowedTools)
		var out []string
		for _, t := range tools {
			if _, ok := allowed[t]; ok {
				out = append(out, t)
			}
		}
		return out
	}
	denied := toSet(profile.DeniedTools)
	var out []string
	for _, t := range tools {
		if _, ok := denied[t]; !ok {
			out = append(out, t)
		}
	}
	return out
}

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, i := range items {
		set[i] = struct{}{}
	}
	return set
}
