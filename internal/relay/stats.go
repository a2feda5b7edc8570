package relay

import "sync/atomic"

// Stats is a point-in-time copy of the relay counters.
type Stats struct {
	Attempts             int64 `json:"attempts"`
	NetworkFailures      int64 `json:"network_failures"`
	HistoryWriteFailures int64 `json:"history_write_failures"`
	Canceled             int64 `json:"canceled"`
}

type counters struct {
	attempts             atomic.Int64
	networkFailures      atomic.Int64
	historyWriteFailures atomic.Int64
	canceled             atomic.Int64
}

func (c *counters) snapshot() Stats {
	return Stats{
		Attempts:             c.attempts.Load(),
		NetworkFailures:      c.networkFailures.Load(),
		HistoryWriteFailures: c.historyWriteFailures.Load(),
		Canceled:             c.canceled.Load(),
	}
}
