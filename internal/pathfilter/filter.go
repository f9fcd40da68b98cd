package pathfilter

import (
	"os"
	"path/filepath"
	"strings"
)

// transientDirectories are well-known directories whose contents churn
// constantly and never constitute reportable integrity changes.
var transientDirectories = []string{
	".git",
	".svn",
	".hg",
	"__pycache__",
	"node_modules",
	".cache",
	".Trash",
}

// transientSuffixes are file suffixes for scratch, lock and log files.
var transientSuffixes = []string{
	".tmp",
	".swp",
	".swx",
	".lock",
	".log",
	".pyc",
	"~",
}

// Filter decides whether a path is in scope for monitoring. The
// predicate is pure: the same path always yields the same answer
// regardless of whether it is asked during a full scan or live-event
// triage.
type Filter struct {
	excludedPatterns []string
}

// NewFilter creates a filter from the configured exclusion patterns.
// A pattern containing glob metacharacters is matched against the base
// name; any other pattern is treated as a path substring.
func NewFilter(excludedPatterns []string) *Filter {
	patterns := make([]string, len(excludedPatterns))
	copy(patterns, excludedPatterns)
	return &Filter{excludedPatterns: patterns}
}

// IsMonitorable reports whether path is in scope. It stats the path to
// reject directories and symbolic links; a path that no longer exists
// is still considered monitorable so that deletion events pass triage.
func (f *Filter) IsMonitorable(path string) bool {
	if !f.passesPatterns(path) {
		return false
	}

	info, err := os.Lstat(path)
	if err != nil {
		// Absent or unreadable: pattern checks already passed, and the
		// reconciler needs to see deletions of in-scope paths.
		return true
	}
	return f.isMonitorableInfo(info)
}

// IsMonitorableEntry is the walk-site variant: the caller already
// holds the os.FileInfo, so no extra stat is needed. Both call sites
// share the same pattern logic.
func (f *Filter) IsMonitorableEntry(path string, info os.FileInfo) bool {
	if !f.passesPatterns(path) {
		return false
	}
	return f.isMonitorableInfo(info)
}

func (f *Filter) isMonitorableInfo(info os.FileInfo) bool {
	if info.IsDir() {
		return false
	}
	if info.Mode()&os.ModeSymlink != 0 {
		return false
	}
	return info.Mode().IsRegular()
}

// passesPatterns applies configured exclusions and built-in
// transient/system rejects.
func (f *Filter) passesPatterns(path string) bool {
	base := filepath.Base(path)

	for _, pattern := range f.excludedPatterns {
		if containsGlobMeta(pattern) {
			if matched, _ := filepath.Match(pattern, base); matched {
				return false
			}
			continue
		}
		if strings.Contains(path, pattern) {
			return false
		}
	}

	for _, dir := range transientDirectories {
		if pathContainsSegment(path, dir) {
			return false
		}
	}

	for _, suffix := range transientSuffixes {
		if strings.HasSuffix(base, suffix) {
			return false
		}
	}

	return true
}

// ShouldDescend reports whether a directory subtree is worth walking
// or watching at all. Exclusion patterns and transient directories
// prune whole subtrees.
func (f *Filter) ShouldDescend(dirPath string) bool {
	base := filepath.Base(dirPath)
	for _, dir := range transientDirectories {
		if base == dir {
			return false
		}
	}
	for _, pattern := range f.excludedPatterns {
		if containsGlobMeta(pattern) {
			if matched, _ := filepath.Match(pattern, base); matched {
				return false
			}
			continue
		}
		if strings.Contains(dirPath, pattern) {
			return false
		}
	}
	return true
}

func containsGlobMeta(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[")
}

// pathContainsSegment reports whether any path component equals segment.
func pathContainsSegment(path, segment string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == segment {
			return true
		}
	}
	return false
}
