package buildpipeline

import (
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// EmitQueued announces files before any of them starts.
func EmitQueued(sink ProgressSink, files []string) {
	if sink == nil {
		return
	}
	for _, file := range files {
		sink.OnEvent(Event{File: file, Stage: StageResolve, Status: StatusQueued})
	}
}

// EmitStage reports a stage transition for file. Stages the pipeline does
// not run itself, like StageResolve, are reported by the caller.
func EmitStage(sink ProgressSink, file string, stage Stage, status Status, err error, elapsed time.Duration) {
	if sink == nil {
		return
	}
	sink.OnEvent(Event{File: file, Stage: stage, Status: status, Err: err, Elapsed: elapsed})
}

// DisplayNames maps host paths to the slash-separated names shown in
// progress output: relative to baseDir when inside it, deduplicated and
// sorted.
func DisplayNames(files []string, baseDir string) []string {
	if len(files) == 0 {
		return files
	}
	normalized := make([]string, 0, len(files))
	seen := make(map[string]struct{}, len(files))

	base := strings.TrimSpace(baseDir)
	if base != "" {
		if abs, err := filepath.Abs(base); err == nil {
			base = abs
		}
	}

	for _, file := range files {
		if file == "" {
			continue
		}
		p := filepath.Clean(file)
		if base != "" {
			if abs, err := filepath.Abs(p); err == nil {
				p = abs
			}
			if rel, err := filepath.Rel(base, p); err == nil && rel != "." && !strings.HasPrefix(rel, "..") {
				p = rel
			}
		}
		p = filepath.ToSlash(p)
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		normalized = append(normalized, p)
	}
	sort.Strings(normalized)
	return normalized
}
