// Command genmock writes a deterministic power-log fixture (events, attacks,
// and schedule rows frozen at a fixed "now") and the days generated from it.
// The same seed always yields the same files.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -days 21 -seed 7 \
//	  -out data/mock/inputs.json \
//	  -days-out data/mock/days.json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"

	"github.com/couchcryptid/grid-timeline/internal/domain"
	"github.com/jonboulle/clockwork"
)

const rowLayout = time.RFC3339

var attackDescriptions = []string{
	"massive missile strike",
	"drone attack on substation",
	"emergency shutdown after shelling",
	"",
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	days := flag.Int("days", 14, "number of calendar days to generate, ending today")
	seed := flag.Uint64("seed", 1, "random seed")
	tz := flag.String("tz", "Europe/Kyiv", "IANA zone that defines calendar days")
	nowFlag := flag.String("now", "2025-01-15T14:30:00+02:00", "frozen current time (RFC3339)")
	padMonth := flag.Bool("pad-month", false, "pad the calendar to the first of the month")
	out := flag.String("out", "", "output path for the inputs fixture")
	daysOut := flag.String("days-out", "", "output path for the generated days")
	flag.Parse()

	if *out == "" || *daysOut == "" || *days < 1 {
		flag.Usage()
		return fmt.Errorf("missing required flags: -out, -days-out, -days >= 1")
	}

	loc, err := time.LoadLocation(*tz)
	if err != nil {
		return fmt.Errorf("load timezone: %w", err)
	}
	frozen, err := time.Parse(time.RFC3339, *nowFlag)
	if err != nil {
		return fmt.Errorf("parse -now: %w", err)
	}
	clock := clockwork.NewFakeClockAt(frozen)
	now := clock.Now().In(loc)

	rng := rand.New(rand.NewPCG(*seed, *seed^0x9e3779b97f4a7c15))
	fixture := domain.Fixture{
		Timezone: *tz,
		Now:      now,
		PadMonth: *padMonth,
		Dataset:  generateDataset(rng, now, *days),
	}

	generated, err := fixture.Generate()
	if err != nil {
		return fmt.Errorf("generate days: %w", err)
	}

	if err := writeJSON(*out, fixture); err != nil {
		return fmt.Errorf("writing inputs fixture: %w", err)
	}
	log.Printf("wrote inputs fixture: %s", *out)

	if err := writeJSON(*daysOut, generated); err != nil {
		return fmt.Errorf("writing days fixture: %w", err)
	}
	log.Printf("wrote days fixture: %s", *daysOut)

	printStats(fixture.Dataset, generated, now)
	return nil
}

// generateDataset produces alternating ON/OFF events from the first day up to
// now, a blackout/available schedule per day, and occasional attacks.
func generateDataset(rng *rand.Rand, now time.Time, days int) domain.Dataset {
	loc := now.Location()
	y, m, d := now.Date()
	first := time.Date(y, m, d-days+1, 0, 0, 0, 0, loc)

	var ds domain.Dataset
	state := domain.StateOn
	if rng.IntN(2) == 0 {
		state = domain.StateOff
	}

	for i := range days {
		date := first.AddDate(0, 0, i)

		// Events: 2-6 transitions at strictly increasing minutes.
		minute := rng.IntN(120)
		for range 2 + rng.IntN(5) {
			ts := date.Add(time.Duration(minute) * time.Minute)
			if ts.After(now) || minute >= 24*60 {
				break
			}
			ds.Events = append(ds.Events, domain.RawPowerEvent{
				EventTime: ts.UTC().Format(rowLayout),
				Type:      string(state),
			})
			// A repeated report of the same state now and then.
			if rng.IntN(10) > 0 {
				state = toggle(state)
			}
			minute += 30 + rng.IntN(300)
		}

		// Schedule: a 4-hour grid, each block black or green.
		for h := 0; h < 24; h += 4 {
			kind := "green"
			if rng.IntN(3) == 0 {
				kind = "black"
			}
			start := date.Add(time.Duration(h) * time.Hour)
			ds.Schedule = append(ds.Schedule, domain.RawScheduleSlot{
				StartTime: start.UTC().Format(rowLayout),
				EndTime:   start.Add(4 * time.Hour).UTC().Format(rowLayout),
				Type:      kind,
			})
		}

		if rng.IntN(5) == 0 {
			ds.Attacks = append(ds.Attacks, domain.RawAttack{
				StartTime:     date.Add(time.Duration(rng.IntN(20)) * time.Hour).UTC().Format(rowLayout),
				DurationHours: float64(1 + rng.IntN(12)),
				Description:   attackDescriptions[rng.IntN(len(attackDescriptions))],
			})
		}
	}
	return ds
}

func toggle(s domain.PowerState) domain.PowerState {
	if s == domain.StateOn {
		return domain.StateOff
	}
	return domain.StateOn
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}

func printStats(ds domain.Dataset, days []domain.Day, now time.Time) {
	s := domain.Summarize(days, now)

	fmt.Println("\n=== Stats for updating test assertions ===")
	fmt.Printf("Rows: events=%d, attacks=%d, schedule=%d\n", len(ds.Events), len(ds.Attacks), len(ds.Schedule))
	fmt.Printf("Days: %d\n", len(days))
	fmt.Printf("Real feel: %.1f%%\n", s.RealFeel)
	fmt.Printf("Schedule accuracy: %.1f%%\n", s.ScheduleAccuracy)
	fmt.Printf("Stability: short=%d, medium=%d, long=%d\n", s.Stability.Short, s.Stability.Medium, s.Stability.Long)
	if s.Trend != nil {
		fmt.Printf("Trend: %s (%.1f%%)\n", s.Trend.Verdict, s.Trend.ChangePercent)
	}
	for _, d := range days {
		fmt.Printf("  %s on=%-5s off=%-5s outages=%d quality=%.3f match=%d/%d\n",
			d.Key, domain.FormatDuration(d.TotalOnMinutes), domain.FormatDuration(d.TotalOffMinutes),
			d.OutageCount, d.QualityIndex, d.MatchMinutes, d.ScheduleMinutesTotal)
	}
}
