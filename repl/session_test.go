package repl

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func connectedSession(t *testing.T) (*Session, *fakeDevice) {
	t.Helper()

	dev, host := newFakeDevice()
	session, err := NewSession(context.Background(), host, fastConfig())
	require.NoError(t, err)
	require.NoError(t, session.Connect())
	t.Cleanup(func() { _ = session.Disconnect() })

	return session, dev
}

func TestSession_ConnectReachesReady(t *testing.T) {
	session, _ := connectedSession(t)

	assert.Equal(t, Ready, session.State())
	assert.NotEmpty(t, session.ID())
}

func TestSession_ConnectTwice(t *testing.T) {
	session, _ := connectedSession(t)

	require.ErrorIs(t, session.Connect(), ErrAlreadyConnected)
}

func TestSession_ExecuteArithmetic(t *testing.T) {
	session, dev := connectedSession(t)

	dev.setReply(func(cmd string) (string, bool) {
		if cmd == "2 + 2" {
			return stdReply(cmd, "4"), true
		}

		return stdReply(cmd, ""), true
	})

	res, err := session.Execute("2 + 2", 0)
	require.NoError(t, err)

	assert.Equal(t, "4", res.Output)
	assert.Empty(t, res.ErrOutput)
	assert.Equal(t, 0, res.ExitCode)
	assert.Greater(t, res.Duration, time.Duration(0))
	assert.False(t, res.Timestamp.IsZero())
	assert.Equal(t, Ready, session.State())
}

func TestSession_ExecuteNotConnected(t *testing.T) {
	dev, host := newFakeDevice()
	_ = dev

	session, err := NewSession(context.Background(), host, fastConfig())
	require.NoError(t, err)

	_, err = session.Execute("1", 0)
	require.ErrorIs(t, err, ErrNotConnected)
}

func TestSession_ExecuteMultiLine(t *testing.T) {
	session, dev := connectedSession(t)

	var received string
	dev.setReply(func(cmd string) (string, bool) {
		received = cmd

		return stdReply(cmd, "done"), true
	})

	res, err := session.Execute("x = 1\nprint('done')", 0)
	require.NoError(t, err)

	assert.Equal(t, "done", res.Output)
	// Multi-line text must travel as a one-line exec statement.
	assert.True(t, strings.HasPrefix(received, `exec("`), "got wire form %q", received)
	assert.NotContains(t, received, "\n")
}

func TestSession_ExecuteTraceback(t *testing.T) {
	session, dev := connectedSession(t)

	traceback := "Traceback (most recent call last):\r\n  File \"<stdin>\", line 1, in <module>\r\nNameError: name 'nope' isn't defined"
	dev.setReply(func(cmd string) (string, bool) {
		return stdReply(cmd, traceback), true
	})

	res, err := session.Execute("nope", 0)
	require.NoError(t, err)

	assert.Equal(t, 1, res.ExitCode)
	assert.Empty(t, res.Output)
	assert.Contains(t, res.ErrOutput, "NameError")
	assert.True(t, strings.HasPrefix(res.ErrOutput, "Traceback"))
}

func TestSession_BusyRejectsSecondCommand(t *testing.T) {
	session, dev := connectedSession(t)

	release := make(chan struct{})
	dev.setReply(func(cmd string) (string, bool) {
		go func() {
			<-release
			dev.respond(stdReply(cmd, "slow"))
		}()

		return "", false
	})

	type outcome struct {
		res *ExecResult
		err error
	}
	firstDone := make(chan outcome, 1)

	go func() {
		res, err := session.Execute("slow_op()", time.Second)
		firstDone <- outcome{res, err}
	}()

	// Wait until the first command holds the busy gate.
	require.Eventually(t, func() bool { return session.State() == Busy },
		time.Second, 5*time.Millisecond)

	_, err := session.Execute("second()", time.Second)
	require.ErrorIs(t, err, ErrBusy)

	// The rejected command must not corrupt the first command's result.
	close(release)
	first := <-firstDone
	require.NoError(t, first.err)
	assert.Equal(t, "slow", first.res.Output)
}

func TestSession_Timeout(t *testing.T) {
	session, dev := connectedSession(t)
	dev.silence()

	start := time.Now()
	_, err := session.Execute("while True: pass", 50*time.Millisecond)
	require.ErrorIs(t, err, ErrCommandTimeout)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)

	assert.Equal(t, Faulted, session.State())

	session.mu.Lock()
	bufLen := session.rb.len()
	session.mu.Unlock()
	assert.Equal(t, 0, bufLen, "buffer must be empty immediately after timeout")

	// A faulted session refuses commands until Reset.
	_, err = session.Execute("1", 0)
	require.ErrorIs(t, err, ErrFaulted)
}

func TestSession_ResetAfterTimeoutRestoresSession(t *testing.T) {
	session, dev := connectedSession(t)
	dev.silence()

	_, err := session.Execute("stuck()", 50*time.Millisecond)
	require.ErrorIs(t, err, ErrCommandTimeout)
	require.Equal(t, Faulted, session.State())

	require.NoError(t, session.Reset())
	assert.Equal(t, Ready, session.State())

	dev.setReply(func(cmd string) (string, bool) {
		return stdReply(cmd, "alive"), true
	})

	res, err := session.Execute("check()", 0)
	require.NoError(t, err)
	assert.Equal(t, "alive", res.Output)
	assert.EqualValues(t, 1, session.Metrics().ResetCount.Load())
}

func TestSession_ResetIsIdempotent(t *testing.T) {
	session, _ := connectedSession(t)

	require.NoError(t, session.Reset())
	require.NoError(t, session.Reset())
	assert.Equal(t, Ready, session.State())
}

func TestSession_ResetAbortsPendingCommand(t *testing.T) {
	session, dev := connectedSession(t)
	dev.silence()

	done := make(chan error, 1)
	go func() {
		_, err := session.Execute("stuck()", time.Second)
		done <- err
	}()

	require.Eventually(t, func() bool { return session.State() == Busy },
		time.Second, 5*time.Millisecond)

	require.NoError(t, session.Reset())

	select {
	case err := <-done:
		require.ErrorIs(t, err, ErrAborted)
	case <-time.After(time.Second):
		t.Fatal("pending command not resolved by reset")
	}
}

func TestSession_CoalescedBurstDropsTrailingOutput(t *testing.T) {
	session, dev := connectedSession(t)

	// A slow device flushing late can deliver a burst holding two prompts.
	// Only the fenced-off front resolves the command; the rest belongs to
	// no command and is dropped.
	dev.setReply(func(cmd string) (string, bool) {
		return cmd + "\r\nfirst\r\n>>> stray output\r\n>>> ", true
	})

	res, err := session.Execute("burst()", 0)
	require.NoError(t, err)
	assert.Equal(t, "first", res.Output)
	assert.Greater(t, session.Metrics().DroppedBytes.Load(), uint64(0))
}

func TestSession_ChannelFailureFaultsSession(t *testing.T) {
	dev, host := newFakeDevice()
	session, err := NewSession(context.Background(), host, fastConfig())
	require.NoError(t, err)
	require.NoError(t, session.Connect())

	dev.silence()

	done := make(chan error, 1)
	go func() {
		_, execErr := session.Execute("stuck()", 5*time.Second)
		done <- execErr
	}()

	require.Eventually(t, func() bool { return session.State() == Busy },
		time.Second, 5*time.Millisecond)

	host.FailWith(errors.New("usb unplugged"))

	select {
	case execErr := <-done:
		require.ErrorIs(t, execErr, ErrChannel)
	case <-time.After(time.Second):
		t.Fatal("pending command not resolved by channel failure")
	}

	require.Eventually(t, func() bool { return session.State() == Faulted },
		time.Second, 5*time.Millisecond)
}

func TestSession_DisconnectResolvesPending(t *testing.T) {
	session, dev := connectedSession(t)
	dev.silence()

	done := make(chan error, 1)
	go func() {
		_, err := session.Execute("stuck()", 5*time.Second)
		done <- err
	}()

	require.Eventually(t, func() bool { return session.State() == Busy },
		time.Second, 5*time.Millisecond)

	require.NoError(t, session.Disconnect())

	select {
	case err := <-done:
		require.ErrorIs(t, err, ErrChannel)
	case <-time.After(time.Second):
		t.Fatal("pending command not resolved by disconnect")
	}

	assert.Equal(t, Disconnected, session.State())

	// Disconnect is idempotent.
	require.NoError(t, session.Disconnect())
}

func TestSession_UnsolicitedOutputBounded(t *testing.T) {
	session, dev := connectedSession(t)

	// A runaway script prints with no command pending; the buffer must be
	// bounded and the discarded length accounted in full.
	junk := strings.Repeat("spam ", maxIdleBufferSize/5+10)
	dev.respond(junk)

	require.Eventually(t, func() bool {
		return session.Metrics().DroppedBytes.Load() >= uint64(len(junk))
	}, time.Second, 5*time.Millisecond)

	session.mu.Lock()
	bufLen := session.rb.len()
	session.mu.Unlock()
	assert.Equal(t, 0, bufLen)

	// The session stays usable afterwards.
	dev.setReply(func(cmd string) (string, bool) {
		return stdReply(cmd, "ok"), true
	})
	res, err := session.Execute("still_here()", 0)
	require.NoError(t, err)
	assert.Equal(t, "ok", res.Output)
}

func TestSession_MetricsAccounting(t *testing.T) {
	session, dev := connectedSession(t)

	dev.setReply(func(cmd string) (string, bool) {
		return stdReply(cmd, "ok"), true
	})

	for i := 0; i < 3; i++ {
		_, err := session.Execute("noop()", 0)
		require.NoError(t, err)
	}

	m := session.Metrics()
	assert.EqualValues(t, 3, m.CmdSendCount.Load())
	assert.EqualValues(t, 3, m.CmdOKCount.Load())
	assert.EqualValues(t, 0, m.CmdTimeoutCount.Load())
	assert.EqualValues(t, 0, m.CmdInflightGauge.Load())
	assert.Greater(t, m.BytesWritten.Load(), uint64(0))
	assert.Greater(t, m.BytesRead.Load(), uint64(0))
}

func TestSession_InitializeRequiresConnection(t *testing.T) {
	_, host := newFakeDevice()
	session, err := NewSession(context.Background(), host, fastConfig())
	require.NoError(t, err)

	require.ErrorIs(t, session.Initialize(), ErrNotConnected)
	require.ErrorIs(t, session.Reset(), ErrNotConnected)
}
