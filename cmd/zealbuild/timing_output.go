package main

import (
	"fmt"
	"io"
	"time"

	"zealbuild/internal/buildpipeline"
)

var timingLabels = []struct {
	stage buildpipeline.Stage
	label string
}{
	{buildpipeline.StageResolve, "resolved"},
	{buildpipeline.StageAssemble, "assembled"},
	{buildpipeline.StageLink, "linked"},
	{buildpipeline.StageExtract, "extracted"},
}

func printStageTimings(out io.Writer, name string, timings buildpipeline.Timings) error {
	if out == nil {
		return nil
	}
	for _, tl := range timingLabels {
		if !timings.Has(tl.stage) {
			continue
		}
		if _, err := fmt.Fprintf(out, "%s: %s %.1f ms\n", name, tl.label, toMillis(timings.Duration(tl.stage))); err != nil {
			return err
		}
	}
	return nil
}

func toMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
