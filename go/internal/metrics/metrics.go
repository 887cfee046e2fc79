// Package metrics exposes duel counters to Prometheus.
package metrics

// Collector receives gameplay and storage measurements.
type Collector interface {
	MatchStarted()
	RoundResolved(outcome string)
	ObserveReaction(ms int64)
	MatchCompleted()
	HistoryRecordsDropped(n int)
	HistoryAppendFailed()
}

// NoOp is a Collector that records nothing
type NoOp struct{}

func (NoOp) MatchStarted()             {}
func (NoOp) RoundResolved(string)      {}
func (NoOp) ObserveReaction(int64)     {}
func (NoOp) MatchCompleted()           {}
func (NoOp) HistoryRecordsDropped(int) {}
func (NoOp) HistoryAppendFailed()      {}
