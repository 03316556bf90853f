package notify

import (
	"time"

	"github.com/sony/gobreaker"
)

// newBreaker opens after 3 consecutive failures or a failure ratio above 5%
// over at least 20 requests, and probes again after a minute.
func newBreaker(name string) *gobreaker.CircuitBreaker {
	st := gobreaker.Settings{Name: name}
	st.Interval = 60 * time.Second
	st.Timeout = 60 * time.Second
	st.ReadyToTrip = func(counts gobreaker.Counts) bool {
		if counts.ConsecutiveFailures >= 3 {
			return true
		}
		if counts.Requests < 20 {
			return false
		}
		return float64(counts.TotalFailures)/float64(counts.Requests) > 0.05
	}
	return gobreaker.NewCircuitBreaker(st)
}
