package repl

import (
	"bytes"
	"sync"
	"time"

	"github.com/hirossan4049/mpy-sdk/transport"
)

// fakeDevice simulates a MicroPython board on the far end of an in-memory
// pipe: it echoes received lines, runs them through a reply function, and
// terminates every response with the idle prompt.
type fakeDevice struct {
	ch *transport.PipeChannel

	mu    sync.Mutex
	reply func(cmd string) (raw string, respond bool)
	line  bytes.Buffer
}

// stdReply builds the standard wire response for a command: echo, output
// lines, idle prompt.
func stdReply(cmd, output string) string {
	if output == "" {
		return cmd + "\r\n>>> "
	}

	return cmd + "\r\n" + output + "\r\n>>> "
}

// newFakeDevice starts a simulated device and returns it along with the
// host-side channel to hand to the session. The initial reply function
// answers every command with an empty output.
func newFakeDevice() (*fakeDevice, *transport.PipeChannel) {
	host, devEnd := transport.Pipe()

	dev := &fakeDevice{ch: devEnd}
	dev.reply = func(cmd string) (string, bool) {
		return stdReply(cmd, ""), true
	}

	go dev.run()

	return dev, host
}

// setReply swaps the reply function.
func (d *fakeDevice) setReply(fn func(cmd string) (string, bool)) {
	d.mu.Lock()
	d.reply = fn
	d.mu.Unlock()
}

// silence makes the device swallow all input, prompts included.
func (d *fakeDevice) silence() {
	d.setReply(func(string) (string, bool) { return "", false })
}

func (d *fakeDevice) run() {
	for chunk := range d.ch.Bytes() {
		for _, b := range chunk {
			d.feed(b)
		}
	}
}

func (d *fakeDevice) feed(b byte) {
	if b == 0x03 {
		// Interrupt: abandon any partial line, report, prompt again.
		d.line.Reset()
		d.respond("\r\nKeyboardInterrupt\r\n>>> ")

		return
	}

	d.line.WriteByte(b)

	data := d.line.String()
	if !bytes.HasSuffix(d.line.Bytes(), []byte("\r\n")) {
		return
	}

	cmd := data[:len(data)-2]
	d.line.Reset()

	d.mu.Lock()
	fn := d.reply
	d.mu.Unlock()

	if raw, ok := fn(cmd); ok {
		d.respond(raw)
	}
}

func (d *fakeDevice) respond(raw string) {
	_, _ = d.ch.Write([]byte(raw))
}

// fastConfig returns a session config with short settle intervals so
// connect/reset cycles don't dominate test time.
func fastConfig(opts ...SessionOption) *SessionConfig {
	base := []SessionOption{
		WithSettleInterval(10 * time.Millisecond),
		WithResetInterval(10 * time.Millisecond),
		WithExecTimeout(2 * time.Second),
	}

	cfg, err := NewSessionConfig(append(base, opts...)...)
	if err != nil {
		panic(err)
	}

	return cfg
}
