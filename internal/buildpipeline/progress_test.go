package buildpipeline

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDisplayNames(t *testing.T) {
	base := t.TempDir()
	files := []string{
		filepath.Join(base, "src", "main.asm"),
		filepath.Join(base, "demo.asm"),
		filepath.Join(base, "src", "..", "demo.asm"),
		"",
	}
	assert.Equal(t, []string{"demo.asm", "src/main.asm"}, DisplayNames(files, base))
}

func TestEmitQueuedAndChannelSink(t *testing.T) {
	ch := make(chan Event, 4)
	sink := ChannelSink{Ch: ch}
	EmitQueued(sink, []string{"a.asm", "b.asm"})
	EmitStage(sink, "a.asm", StageResolve, StatusDone, nil, 0)
	close(ch)

	var got []Event
	for e := range ch {
		got = append(got, e)
	}
	assert.Equal(t, []Event{
		{File: "a.asm", Stage: StageResolve, Status: StatusQueued},
		{File: "b.asm", Stage: StageResolve, Status: StatusQueued},
		{File: "a.asm", Stage: StageResolve, Status: StatusDone},
	}, got)

	EmitQueued(nil, []string{"ignored"})
}
