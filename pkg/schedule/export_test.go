package schedule

import "time"

// SetTick shortens the dispatch tick in tests.
func (s *Scheduler) SetTick(d time.Duration) { s.tick = d }
