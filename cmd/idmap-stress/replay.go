package main

import (
	"fmt"
	"os"

	"github.com/plus3/slots/idmap/replica"
	"go.uber.org/zap"
)

// ReplayResult summarises a script applied to a fresh mirror table.
type ReplayResult struct {
	Name   string        `yaml:"name"`
	Events int           `yaml:"events"`
	Live   int           `yaml:"live"`
	Stats  replica.Stats `yaml:"stats"`
}

func replayScript(path string, growStep int, log *zap.Logger) (*ReplayResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open script: %w", err)
	}
	defer f.Close()

	script, err := replica.LoadScript[Payload](f)
	if err != nil {
		return nil, fmt.Errorf("script %s: %w", path, err)
	}

	table := replica.New[Payload, uint16, uint16](
		replica.WithGrowStep(growStep),
		replica.WithLogger(log.Named("replay")),
	)
	if err := table.ApplyAll(script.Events); err != nil {
		return nil, fmt.Errorf("replay %s: %w", path, err)
	}
	if err := table.Objects().CheckInvariants(); err != nil {
		return nil, fmt.Errorf("replay %s: %w", path, err)
	}

	return &ReplayResult{
		Name:   script.Name,
		Events: len(script.Events),
		Live:   table.Len(),
		Stats:  table.Stats(),
	}, nil
}

func writeScript(path, name string, events []replica.Event[Payload]) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create script: %w", err)
	}

	script := &replica.Script[Payload]{Name: name, Events: events}
	if err := script.Encode(f); err != nil {
		f.Close()
		return fmt.Errorf("write script %s: %w", path, err)
	}
	return f.Close()
}
