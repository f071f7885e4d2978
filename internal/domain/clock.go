package domain

import "github.com/jonboulle/clockwork"

// clock stamps ReceivedAt on parsed records. Timeline generation never reads
// it; "now" is always passed in explicitly.
var clock = clockwork.NewRealClock()

// SetClock swaps the record time source. Pass nil to reset to real time.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}
