package dispatch

import "telecast/internal/model"

// admitted reports whether a channel may receive a broadcast at the given
// time of day. Both window bounds are inclusive. The comparison is pure
// wall-clock time in whatever zone the caller's clock runs in; windows are
// configured in that same zone.
func admitted(now, start, end model.TimeOfDay) bool {
	return now >= start && now <= end
}
