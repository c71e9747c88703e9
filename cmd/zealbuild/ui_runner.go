package main

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"zealbuild/internal/buildpipeline"
	"zealbuild/internal/ui"
)

// runWithUI runs work in the background while a progress view consumes its
// events. work must only report progress through the sink it is given.
func runWithUI(ctx context.Context, title string, files []string, work func(context.Context, buildpipeline.ProgressSink) error) error {
	events := make(chan buildpipeline.Event, 256)
	errCh := make(chan error, 1)

	go func() {
		err := work(ctx, buildpipeline.ChannelSink{Ch: events})
		close(events)
		errCh <- err
	}()

	model := ui.NewProgressModel(title, files, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout))
	_, uiErr := program.Run()
	if uiErr != nil {
		// Keep draining so the worker never blocks on a full channel.
		go func() {
			for range events {
			}
		}()
	}
	err := <-errCh
	if uiErr != nil {
		return uiErr
	}
	return err
}
