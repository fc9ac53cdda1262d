package engine

import (
	"log/slog"
	"math"
)

// Tick advances every playing browser by the number of items its rate
// allows since that browser's previous step.
//
// The first tick after playback starts only records the time. A browser
// steps when elapsed*rate rounds to at least one item; without item
// skipping it steps by exactly one however much time passed. Browsers that
// are not playing forget their last step time.
func (e *Engine) Tick() {
	now := e.wall.Now()
	for _, b := range e.Browsers() {
		id := b.ID()
		pb := b.Playback()
		if !pb.Active {
			delete(e.lastTick, id)
			continue
		}
		last, ok := e.lastTick[id]
		if !ok {
			e.lastTick[id] = now
			continue
		}

		elapsed := now.Sub(last).Seconds()
		increment := int(math.Floor(elapsed*pb.RateFps + 0.5))
		if increment <= 0 {
			continue
		}
		e.lastTick[id] = now
		if !pb.ItemSkipping {
			increment = 1
		}
		slog.Debug("playback step", "browser", b.Name(), "increment", increment, "elapsed_s", elapsed)
		b.SelectNext(increment)
	}
}
