// Command validate replays a genmock fixture and checks the generated
// timeline for integrity: input ordering, per-day invariants, and (when a
// days file is given) exact agreement with the stored days.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -inputs data/mock/inputs.json \
//	  -days data/mock/days.json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/couchcryptid/grid-timeline/internal/domain"
	"github.com/google/go-cmp/cmp"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	inputsPath := flag.String("inputs", "", "path to the inputs fixture written by genmock")
	daysPath := flag.String("days", "", "optional path to the expected days")
	flag.Parse()

	if *inputsPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	os.Exit(run(*inputsPath, *daysPath))
}

func run(inputsPath, daysPath string) int {
	fmt.Println("=== Grid Timeline Integrity Validation ===")
	fmt.Println()

	var fixture domain.Fixture
	if err := loadJSON(inputsPath, &fixture); err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load inputs: %v\n", err)
		return 1
	}

	var expected []domain.Day
	if daysPath != "" {
		if err := loadJSON(daysPath, &expected); err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: load days: %v\n", err)
			return 1
		}
	}

	inputs, inputsPhase := validateInputs(fixture)
	phases := []*phase{inputsPhase}

	var days []domain.Day
	if inputsPhase.passed() {
		days = domain.GenerateDays(inputs.in, fixture.Now.In(inputs.loc), domain.Options{PadMonth: fixture.PadMonth})
		phases = append(phases, validateInvariants(days, inputs.in.Events))
		if daysPath != "" {
			phases = append(phases, validateFixture(days, expected))
		}
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Rows: %d events, %d attacks, %d schedule; %d days generated\n",
		len(fixture.Dataset.Events), len(fixture.Dataset.Attacks), len(fixture.Dataset.Schedule), len(days))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

func loadJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

type loadedInputs struct {
	in  domain.Inputs
	loc *time.Location
}

// ── Phase 1: Inputs ──
// Every row parses and events are in ascending time order.

func validateInputs(f domain.Fixture) (loadedInputs, *phase) {
	p := &phase{name: "Phase 1: Inputs (rows and ordering)"}

	loc, err := time.LoadLocation(f.Timezone)
	if err != nil {
		p.errorf("timezone %q: %v", f.Timezone, err)
		return loadedInputs{}, p
	}
	if f.Now.IsZero() {
		p.errorf("fixture has no frozen now")
	}

	in, err := f.Dataset.Inputs(loc)
	if err != nil {
		p.errorf("%v", err)
		return loadedInputs{}, p
	}

	for i := 1; i < len(in.Events); i++ {
		if in.Events[i].Timestamp.Before(in.Events[i-1].Timestamp) {
			p.errorf("events[%d] at %s is before events[%d] at %s", i,
				in.Events[i].Timestamp.Format(time.RFC3339), i-1, in.Events[i-1].Timestamp.Format(time.RFC3339))
		}
	}
	for _, key := range in.Schedule.Dates() {
		for _, s := range in.Schedule.Slots(key) {
			if s.Kind != domain.SlotBlackout && s.Kind != domain.SlotAvailable {
				p.errorf("schedule %s %s-%s: invalid kind %q", key, s.Start, s.End, s.Kind)
			}
			if s.EndMinute() <= s.StartMinute() {
				p.errorf("schedule %s %s-%s: empty or inverted slot", key, s.Start, s.End)
			}
		}
	}
	return loadedInputs{in: in, loc: loc}, p
}

// ── Phase 2: Invariants ──
// Checks each generated day on its own and against the event log.

func validateInvariants(days []domain.Day, events []domain.PowerEvent) *phase {
	p := &phase{name: "Phase 2: Invariants (per-day timeline)"}

	for i, d := range days {
		if i > 0 {
			want := domain.DateKey(days[i-1].Date.AddDate(0, 0, -1))
			if d.Key != want {
				p.errorf("day %d: key %s, want %s (newest first, no gaps)", i, d.Key, want)
			}
		}
		checkDay(p, d, events)
	}
	return p
}

func checkDay(p *phase, d domain.Day, events []domain.PowerEvent) {
	if !d.HasData {
		if len(d.Segments) > 0 || d.TotalOnMinutes+d.TotalOffMinutes > 0 {
			p.errorf("%s: day without data has segments or totals", d.Key)
		}
		return
	}

	var on, off, maxOn int
	for j, s := range d.Segments {
		if s.DurationMinutes < 1 {
			p.errorf("%s segment %d: duration %d < 1", d.Key, j, s.DurationMinutes)
		}
		if j > 0 {
			gap := s.Start.Sub(d.Segments[j-1].End)
			if gap < 0 || gap >= time.Minute {
				p.errorf("%s segment %d: starts %s after previous end", d.Key, j, gap)
			}
		}
		switch s.Kind {
		case domain.SegmentOn:
			on += s.DurationMinutes
			maxOn = max(maxOn, s.DurationMinutes)
		case domain.SegmentOff:
			off += s.DurationMinutes
		case domain.SegmentFuture:
			if j != len(d.Segments)-1 {
				p.errorf("%s segment %d: FUTURE is not last", d.Key, j)
			}
			continue
		}
		if want := stateAt(events, s.Start); string(want) != string(s.Kind) {
			p.errorf("%s segment %d at %s: kind %s, carried state %s", d.Key, j, s.Start.Format("15:04:05"), s.Kind, want)
		}
	}

	if on != d.TotalOnMinutes || off != d.TotalOffMinutes {
		p.errorf("%s: totals on=%d off=%d, segments sum on=%d off=%d", d.Key, d.TotalOnMinutes, d.TotalOffMinutes, on, off)
	}
	if maxOn != d.MaxOnMinutes {
		p.errorf("%s: max on %d, want %d", d.Key, d.MaxOnMinutes, maxOn)
	}
	if d.QualityIndex < 0 || d.QualityIndex > 1 {
		p.errorf("%s: quality index %g outside [0,1]", d.Key, d.QualityIndex)
	}
	if acc := d.Accuracy(); acc < 0 || acc > 100 {
		p.errorf("%s: accuracy %g outside [0,100]", d.Key, acc)
	}
	if d.MatchMinutes > d.ScheduleMinutesTotal {
		p.errorf("%s: match %d exceeds total %d", d.Key, d.MatchMinutes, d.ScheduleMinutesTotal)
	}
}

// stateAt is the state set by the last event at or before t. Before the first
// event the first event's own state applies.
func stateAt(events []domain.PowerEvent, t time.Time) domain.PowerState {
	state := events[0].State
	for _, ev := range events {
		if ev.Timestamp.After(t) {
			break
		}
		state = ev.State
	}
	return state
}

// ── Phase 3: Fixture ──
// The regenerated days must equal the stored days exactly.

func validateFixture(days, expected []domain.Day) *phase {
	p := &phase{name: "Phase 3: Fixture (regenerated vs stored)"}

	// Round-trip through JSON so both sides carry the same time zones.
	data, err := json.Marshal(days)
	if err != nil {
		p.errorf("marshal regenerated days: %v", err)
		return p
	}
	var got []domain.Day
	if err := json.Unmarshal(data, &got); err != nil {
		p.errorf("unmarshal regenerated days: %v", err)
		return p
	}

	if len(got) != len(expected) {
		p.errorf("day count: regenerated %d, stored %d", len(got), len(expected))
		return p
	}
	for i := range got {
		if diff := cmp.Diff(expected[i], got[i]); diff != "" {
			p.errorf("%s mismatch (-stored +regenerated):\n%s", expected[i].Key, diff)
		}
	}
	return p
}
