package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"esvelte/internal/pipeline"
	"esvelte/internal/source"
	"esvelte/internal/ui"
)

type uiMode string

const (
	uiModeAuto uiMode = "auto"
	uiModeOn   uiMode = "on"
	uiModeOff  uiMode = "off"
)

func readUIMode(value string) (uiMode, error) {
	switch m := uiMode(strings.TrimSpace(strings.ToLower(value))); m {
	case "":
		return uiModeAuto, nil
	case uiModeAuto, uiModeOn, uiModeOff:
		return m, nil
	}
	return "", fmt.Errorf("invalid --ui value %q (expected auto|on|off)", value)
}

// useTUI решает, рисовать ли прогресс: auto включает его только на
// терминале вне CI
func useTUI(mode uiMode, quiet bool) bool {
	switch {
	case quiet || mode == uiModeOff:
		return false
	case mode == uiModeOn:
		return true
	}
	return isTerminal(os.Stdout) && os.Getenv("CI") == ""
}

type checkOutcome struct {
	results []pipeline.FileResult
	err     error
}

// runCheckWithUI runs the batch in the background and renders its progress
// events until the batch closes the channel.
func runCheckWithUI(ctx context.Context, title string, display []string, cfg pipeline.Config, totals *stageTotals, files []string, jobs int) ([]pipeline.FileResult, error) {
	events := make(chan pipeline.Event, 256)
	outcomeCh := make(chan checkOutcome, 1)

	totals.next = pipeline.ChannelSink{Ch: events}
	cfg.Progress = totals
	go func() {
		res, err := runCheck(ctx, cfg, files, jobs)
		outcomeCh <- checkOutcome{results: res, err: err}
		close(events)
	}()

	model := ui.NewProgressModel(title, display, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout))
	_, uiErr := program.Run()
	// вид мог закрыться раньше, события дочитываем до конца пакета
	go func() {
		for range events {
		}
	}()
	outcome := <-outcomeCh
	if uiErr != nil {
		return outcome.results, uiErr
	}
	return outcome.results, outcome.err
}

func displayOf(root, path string) string {
	return source.DisplayPath(path, root)
}
