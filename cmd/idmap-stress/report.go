package main

import (
	"fmt"
	"io"
	"runtime"
	"text/template"
	"time"

	"gopkg.in/yaml.v3"
)

type Report struct {
	// Configuration
	Duration   time.Duration `yaml:"duration"`
	Seed       uint64        `yaml:"seed"`
	Capacity   int           `yaml:"initial_capacity"`
	OpsPerTick int           `yaml:"ops_per_tick"`
	Replicated bool          `yaml:"replicated"`
	Script     string        `yaml:"script,omitempty"`

	// Results
	TotalTime      time.Duration    `yaml:"total_time"`
	TickTime       Stats            `yaml:"tick_time"`
	Result         Result           `yaml:"result"`
	Replay         *ReplayResult    `yaml:"replay,omitempty"`
	Memory         MemoryDelta      `yaml:"memory"`
	GCPauseMetrics bool             `yaml:"-"`
	MemStatsStart  runtime.MemStats `yaml:"-"`
	MemStatsEnd    runtime.MemStats `yaml:"-"`
}

type Stats struct {
	Min     time.Duration   `yaml:"min"`
	Max     time.Duration   `yaml:"max"`
	Avg     time.Duration   `yaml:"avg"`
	Samples []time.Duration `yaml:"-"`
}

// MemoryDelta is the change in runtime memory statistics over the run.
type MemoryDelta struct {
	HeapAlloc    int64         `yaml:"heap_alloc"`
	TotalAlloc   int64         `yaml:"total_alloc"`
	Sys          int64         `yaml:"sys"`
	NumGC        uint32        `yaml:"num_gc"`
	TotalGCPause time.Duration `yaml:"total_gc_pause"`
}

func (s *Stats) Finalize() {
	if len(s.Samples) == 0 {
		return
	}

	var total time.Duration
	s.Min = s.Samples[0]
	s.Max = s.Samples[0]

	for _, sample := range s.Samples {
		if sample < s.Min {
			s.Min = sample
		}
		if sample > s.Max {
			s.Max = sample
		}
		total += sample
	}
	s.Avg = total / time.Duration(len(s.Samples))
}

// Finalize computes the summary statistics from the collected samples.
func (r *Report) Finalize() {
	r.TickTime.Finalize()
	r.Memory = MemoryDelta{
		HeapAlloc:    int64(r.MemStatsEnd.HeapAlloc) - int64(r.MemStatsStart.HeapAlloc),
		TotalAlloc:   int64(r.MemStatsEnd.TotalAlloc) - int64(r.MemStatsStart.TotalAlloc),
		Sys:          int64(r.MemStatsEnd.Sys) - int64(r.MemStatsStart.Sys),
		NumGC:        r.MemStatsEnd.NumGC - r.MemStatsStart.NumGC,
		TotalGCPause: time.Duration(r.MemStatsEnd.PauseTotalNs - r.MemStatsStart.PauseTotalNs),
	}
}

// Write renders the report in the given format, markdown or yaml.
func (r *Report) Write(w io.Writer, format string) error {
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return err
		}
		return enc.Close()
	case "markdown", "":
		return r.Generate(w)
	default:
		return fmt.Errorf("unknown report format %q", format)
	}
}

func (r *Report) Generate(w io.Writer) error {
	const reportTemplate = `
# idmap Stress Test Report

## Test Configuration
- **Run Duration:** {{.Duration}}
- **Seed:** {{.Seed}}
- **Initial Capacity:** {{.Capacity}}
- **Operations per Tick:** {{.OpsPerTick}}
- **Replication:** {{if .Replicated}}enabled{{else}}disabled{{end}}

## Performance Results
- **Total Ticks:** {{.Result.Ticks}}
- **Total Test Time:** {{.TotalTime}}
- **Tick Time:**
  - **Avg:** {{.TickTime.Avg}}
  - **Min:** {{.TickTime.Min}}
  - **Max:** {{.TickTime.Max}}

## Operations
- Inserts: {{.Result.Inserts}}
- Erases: {{.Result.Erases}} ({{.Result.Expired}} expired)
- Updates: {{.Result.Updates}}
- Grows: {{.Result.Grows}}
- Invariant Checks: {{.Result.InvariantChecks}}

## Authority Map
- Live: {{.Result.Authority.Live}} / {{.Result.Authority.Capacity}} ({{pct .Result.Authority.Live .Result.Authority.Capacity}})
- Blocks: {{.Result.Authority.Blocks}}
- Max Generation: {{.Result.Authority.MaxGeneration}} of {{.Result.Authority.GenerationSpace}}
{{if .Replicated}}
## Replication
- Events Delivered: {{.Result.EventsDelivered}}
- Spawned: {{.Result.Replica.Spawned}}, Updated: {{.Result.Replica.Updated}}, Despawned: {{.Result.Replica.Despawned}}
- Evicted: {{.Result.Replica.Evicted}}, Dropped: {{.Result.Replica.Dropped}}, Tombstoned: {{.Result.Replica.Tombstoned}}
- Mirror Live: {{.Result.Mirror.Live}} / {{.Result.Mirror.Capacity}}
- Divergent Handles: {{.Result.Divergent}}
{{end}}{{with .Replay}}
## Script Replay ({{.Name}})
- Events: {{.Events}}
- Live After Replay: {{.Live}}
- Spawned: {{.Stats.Spawned}}, Dropped: {{.Stats.Dropped}}, Tombstoned: {{.Stats.Tombstoned}}
{{end}}
## Memory Usage (Raw Bytes)
- Heap Alloc Delta:  {{.Memory.HeapAlloc}} ({{mb .Memory.HeapAlloc}} MB)
- Total Alloc Delta: {{.Memory.TotalAlloc}} ({{mb .Memory.TotalAlloc}} MB)
- Sys Memory Delta:  {{.Memory.Sys}}
- Num GC:            {{.Memory.NumGC}}
{{if .GCPauseMetrics}}
## GC Pause Durations
- **Total GC Pause:** {{.Memory.TotalGCPause}}
- **Last GC Pause:** {{lastPause .MemStatsEnd | ns}}
{{end}}`

	fm := template.FuncMap{
		"mb": func(v int64) string {
			return fmt.Sprintf("%.2f", float64(v)/1024/1024)
		},
		"pct": func(a, b int) string {
			if b == 0 {
				return "n/a"
			}
			return fmt.Sprintf("%.1f%%", 100*float64(a)/float64(b))
		},
		"lastPause": func(m runtime.MemStats) uint64 {
			return m.PauseNs[(m.NumGC+255)%256]
		},
		"ns": func(ns uint64) string {
			return time.Duration(ns).String()
		},
	}

	tmpl, err := template.New("report").Funcs(fm).Parse(reportTemplate)
	if err != nil {
		return err
	}

	return tmpl.Execute(w, r)
}
