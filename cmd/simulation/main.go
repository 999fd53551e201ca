package main

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"

	"ambient-stream-be/internal/pkg/logger"
	"ambient-stream-be/pkg/events"
	"ambient-stream-be/pkg/generator"
	"ambient-stream-be/pkg/theory"
	"ambient-stream-be/pkg/weather"
)

// Headless run of the event generator on a virtual clock. Prints each event
// and a distribution summary; no server or MIDI device is needed.
func main() {
	seed := flag.Uint64("seed", 1, "random seed")
	count := flag.Int("count", 64, "number of events to generate")
	key := flag.String("key", "", "initial key (empty picks one)")
	scale := flag.String("scale", "", "initial scale")
	mode := flag.String("mode", "", "initial mode")
	temp := flag.Float64("temp", 0, "temperature in celsius for the weather sample")
	code := flag.Int("code", -1, "WMO weather code; negative skips weather")
	quiet := flag.Bool("quiet", false, "only print the summary")
	flag.Parse()

	cfg := generator.DefaultConfig()
	cfg.Key, cfg.Scale, cfg.Mode = *key, *scale, *mode

	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	gen, err := generator.New(cfg, logger.NewNopLogger(),
		generator.WithRandom(generator.NewSeededRandom(*seed)),
		generator.WithClock(func() time.Time { return clock }),
	)
	if err != nil {
		color.Red("Failed to build generator: %v", err)
		os.Exit(1)
	}

	color.Cyan("=== Ambient Stream Simulation ===")
	fmt.Printf("Seed: %d  Context: %s\n", *seed, gen.Context())

	if *code >= 0 {
		sample := &weather.Sample{TemperatureC: *temp, ConditionCode: *code, ObservedAt: clock}
		gen.ApplyWeather(sample)
		p := gen.Parameters()
		color.Yellow("Weather: %s / %s -> tempo %.0f, density %.2f, octaves %d-%d",
			sample.Condition(), sample.Band(), p.Tempo, p.Density, p.MinOctave, p.MaxOctave)
	}

	counts := map[events.Kind]int{}
	pitches := map[int]int{}
	start := clock
	for i := 0; i < *count; i++ {
		evt := gen.Next()
		counts[evt.Kind()]++
		for _, n := range notesOf(evt) {
			pitches[n.Pitch]++
		}
		if !*quiet {
			printEvent(clock.Sub(start), evt)
		}
		clock = clock.Add(gen.NextInterval())
	}

	color.Cyan("\n=== Summary (%s virtual) ===", clock.Sub(start).Round(time.Second))
	kinds := make([]string, 0, len(counts))
	for k := range counts {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		n := counts[events.Kind(k)]
		fmt.Printf("  %-15s %4d  %5.1f%%\n", k, n, 100*float64(n)/float64(*count))
	}

	if len(pitches) > 0 {
		lo, hi := 127, 0
		for p := range pitches {
			lo, hi = min(lo, p), max(hi, p)
		}
		fmt.Printf("  pitch range     %s-%s (%d distinct)\n", theory.PitchName(lo), theory.PitchName(hi), len(pitches))
	}
	color.Green("Final context: %s", gen.Context())
}

func notesOf(evt events.MusicalEvent) []events.GeneratedNote {
	switch e := evt.(type) {
	case events.NoteEvent:
		return []events.GeneratedNote{e.Note}
	case events.ChordEvent:
		return e.Notes
	}
	return nil
}

func printEvent(at time.Duration, evt events.MusicalEvent) {
	stamp := fmt.Sprintf("[%8s]", at.Round(time.Millisecond))
	switch e := evt.(type) {
	case events.NoteEvent:
		color.Green("%s note     %-4s vel %3d  %6.0fms", stamp, theory.PitchName(e.Note.Pitch), e.Note.Velocity, e.Note.DurationMs)
	case events.ChordEvent:
		names := make([]string, len(e.Notes))
		for i, n := range e.Notes {
			names[i] = theory.PitchName(n.Pitch)
		}
		color.Blue("%s chord    %-12s %s", stamp, e.Style, strings.Join(names, " "))
	case events.PedalEvent:
		color.Magenta("%s pedal    %s engaged=%t", stamp, e.Pedal, e.Engaged)
	case events.ContextChangeEvent:
		color.Yellow("%s context  %s (%s)", stamp, e.Context, e.Axis)
	case events.SilenceEvent:
		color.White("%s silence  %6.0fms", stamp, e.DurationMs)
	case events.ReleaseEvent:
		color.White("%s release  %d notes", stamp, len(e.Notes))
	default:
		fmt.Printf("%s %s\n", stamp, evt.Kind())
	}
}
