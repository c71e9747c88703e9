package ui

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"zealbuild/internal/buildpipeline"
)

func TestProgressModelTracksStages(t *testing.T) {
	events := make(chan buildpipeline.Event)
	m := NewProgressModel("build", []string{"a.asm", "b.asm"}, events).(*progressModel)

	m.applyEvent(buildpipeline.Event{File: "a.asm", Stage: buildpipeline.StageAssemble, Status: buildpipeline.StatusWorking})
	assert.Equal(t, "assembling", m.items[0].status)
	assert.InDelta(t, 0.2, m.percent(), 1e-9)

	m.applyEvent(buildpipeline.Event{File: "a.asm", Stage: buildpipeline.StageLink, Status: buildpipeline.StatusDone})
	assert.Equal(t, "assembling", m.items[0].status, "intermediate done keeps the working label")

	m.applyEvent(buildpipeline.Event{File: "a.asm", Stage: buildpipeline.StageExtract, Status: buildpipeline.StatusDone, Elapsed: 12 * time.Millisecond})
	m.applyEvent(buildpipeline.Event{File: "b.asm", Stage: buildpipeline.StageLink, Status: buildpipeline.StatusError})
	m.applyEvent(buildpipeline.Event{File: "unknown.asm", Stage: buildpipeline.StageLink, Status: buildpipeline.StatusError})
	assert.Equal(t, "done", m.items[0].status)
	assert.Equal(t, "error", m.items[1].status)
	assert.InDelta(t, 1.0, m.percent(), 1e-9)

	view := m.View()
	assert.True(t, strings.Contains(view, "a.asm 12ms"), view)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "averylo...", truncate("averylongfilename.asm", 10))
	assert.Equal(t, "ab", truncate("abcdef", 2))
}
