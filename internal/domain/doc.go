// Package domain reconstructs daily power-availability timelines from a sparse
// log of grid ON/OFF transitions, and scores each day against the published
// outage schedule.
//
// # Inputs
//
// Three collections arrive from the data store, in the row shapes of
// [RawPowerEvent], [RawAttack], and [RawScheduleSlot]:
//
//	events:   {"event_time": "2025-01-10T08:00:00+02:00", "type": "OFF"}
//	attacks:  {"start_time": "...", "duration_hours": 6, "description": "..."}
//	schedule: {"start_time": "...", "end_time": "...", "type": "black"}
//
// Events are supplied sorted by event_time ascending and are not re-sorted.
// Schedule type "black" is a planned blackout ([SlotBlackout]). "green" is a
// window where power may be available ([SlotAvailable]).
//
// # Calendar
//
// All calendar arithmetic uses the location of the "now" passed to
// [GenerateDays]. A day spans local 00:00:00 to 23:59:59. Durations are whole
// minutes, truncated, so a fully observed day holds 1439 minutes. Runs under
// one minute are dropped.
//
// Schedule intervals are split at local midnights by [ScheduleBook.Add]. A
// piece that ends at midnight carries the end clock "24:00" so that its width
// is computed against 1440 minutes instead of wrapping to zero.
//
// # Scoring
//
// Weighted duration counts waking hours [08:00, 23:00) at 1.0 and the night
// band at 0.3. The quality index of a day is
//
//	effective / potential * (1 - min(outages*0.06, 0.45))
//
// where effective is the weighted ON time and potential is the weighted
// length of the observable window. The window runs from the later of midnight
// and the first logged event to the earlier of end of day and now.
//
// Schedule accuracy compares per-minute state with the blackout slots. An
// outage minute within 10 minutes of a blackout boundary still counts as a
// match. An ON minute inside a blackout never does. See [ScoreSchedule].
package domain
