package repl

import "sync/atomic"

// SessionMetrics contains atomic counters for a REPL session.
// The fields can be used directly as prometheus CounterFunc or GaugeFunc values.
type SessionMetrics struct {
	// CmdSendCount indicates the number of commands issued.
	CmdSendCount atomic.Uint64
	// CmdOKCount indicates the number of commands that resolved at a prompt.
	CmdOKCount atomic.Uint64
	// CmdTimeoutCount indicates the number of commands that hit their deadline.
	CmdTimeoutCount atomic.Uint64
	// CmdInflightGauge indicates whether a command is currently pending (0 or 1).
	CmdInflightGauge atomic.Int64

	// BytesWritten indicates the number of bytes written to the channel.
	BytesWritten atomic.Uint64
	// BytesRead indicates the number of bytes received from the channel.
	BytesRead atomic.Uint64
	// DroppedBytes indicates bytes discarded after a prompt that belonged
	// to no command.
	DroppedBytes atomic.Uint64

	// ResetCount indicates the number of reset procedures run.
	ResetCount atomic.Uint64
}

func (m *SessionMetrics) incCmdSendCount()    { m.CmdSendCount.Add(1) }
func (m *SessionMetrics) incCmdOKCount()      { m.CmdOKCount.Add(1) }
func (m *SessionMetrics) incCmdTimeoutCount() { m.CmdTimeoutCount.Add(1) }
func (m *SessionMetrics) incResetCount()      { m.ResetCount.Add(1) }

func (m *SessionMetrics) incCmdInflight() { m.CmdInflightGauge.Add(1) }
func (m *SessionMetrics) decCmdInflight() { m.CmdInflightGauge.Add(-1) }

func (m *SessionMetrics) addBytesWritten(n int) { m.BytesWritten.Add(uint64(n)) }
func (m *SessionMetrics) addBytesRead(n int)    { m.BytesRead.Add(uint64(n)) }
func (m *SessionMetrics) addDroppedBytes(n int) { m.DroppedBytes.Add(uint64(n)) }
