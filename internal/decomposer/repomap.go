package decomposer

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// RepoMap is a lightweight index of a repository's source files used to
// enhance a decomposition with relevantFiles (spec.md 4.F "optionally
// enhance with repo map"): a filepath.WalkDir pass with extension and
// dot-directory filtering, sorted for deterministic output, plus the
// keyword-overlap ranking spec.md 4.F calls for on top of it.
type RepoMap struct {
	files []indexedFile
}

type indexedFile struct {
	path     string
	keywords map[string]struct{}
}

var defaultExcludeDirs = map[string]bool{
	"node_modules": true, "vendor": true, "dist": true, "build": true, ".git": true,
}

var sourceExtensions = map[string]bool{
	".go": true, ".ts": true, ".tsx": true, ".js": true, ".jsx": true,
	".py": true, ".rb": true, ".java": true, ".rs": true, ".c": true, ".cc": true, ".cpp": true, ".h": true,
}

// BuildRepoMap walks root, indexing source files by the keywords in their
// path (directory names and the filename stem split on common separators).
func BuildRepoMap(root string) (*RepoMap, error) {
	rm := &RepoMap{}

	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if path == root {
			return nil
		}
		name := d.Name()
		if d.IsDir() {
			if strings.HasPrefix(name, ".") || defaultExcludeDirs[name] {
				return filepath.SkipDir
			}
			return nil
		}
		if !sourceExtensions[strings.ToLower(filepath.Ext(name))] {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			rel = path
		}
		rm.files = append(rm.files, indexedFile{path: rel, keywords: pathKeywords(rel)})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(rm.files, func(i, j int) bool { return rm.files[i].path < rm.files[j].path })
	return rm, nil
}

// RelevantFiles returns up to limit file paths ranked by keyword overlap
// with description, sorted by descending overlap then by path for
// deterministic ties.
func (rm *RepoMap) RelevantFiles(description string, limit int) []string {
	if rm == nil {
		return nil
	}
	want := pathKeywords(description)
	if len(want) == 0 {
		return nil
	}

	type scored struct {
		path  string
		score int
	}
	var candidates []scored
	for _, f := range rm.files {
		score := overlap(want, f.keywords)
		if score > 0 {
			candidates = append(candidates, scored{f.path, score})
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].path < candidates[j].path
	})

	if limit <= 0 || limit > len(candidates) {
		limit = len(candidates)
	}
	out := make([]string, 0, limit)
	for _, c := range candidates[:limit] {
		out = append(out, c.path)
	}
	return out
}

// EstimateTokens gives a rough per-file token estimate from its on-disk
// size (spec.md 4.F "estimate tokens from chunk sizes"): ~4 bytes/token is
// the standard rule of thumb for English-ish source text.
func EstimateTokens(root, relPath string) int {
	info, err := os.Stat(filepath.Join(root, relPath))
	if err != nil {
		return 0
	}
	return int(info.Size() / 4)
}

var wordSplitter = strings.NewReplacer("/", " ", "_", " ", "-", " ", ".", " ")

func pathKeywords(s string) map[string]struct{} {
	words := strings.Fields(wordSplitter.Replace(strings.ToLower(s)))
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		if len(w) < 3 {
			continue
		}
		set[w] = struct{}{}
	}
	return set
}

func overlap(a, b map[string]struct{}) int {
	n := 0
	for w := range a {
		if _, ok := b[w]; ok {
			n++
		}
	}
	return n
}
