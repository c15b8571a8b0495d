package device

import (
	"encoding/hex"
	"path"
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/hirossan4049/mpy-sdk/repl"
)

// fakeBoard emulates the REPL side of a MicroPython board with an in-memory
// filesystem. It interprets the exact primitive commands the client issues.
type fakeBoard struct {
	files map[string][]byte
	dirs  map[string]bool

	flashSize int64
	memFree   int64
	machineID string
	uname     string

	statBroken bool
	failFlash  bool
	failMem    bool
	failMAC    bool

	commands []string
	openPath string
}

func newFakeBoard() *fakeBoard {
	return &fakeBoard{
		files:     make(map[string][]byte),
		dirs:      map[string]bool{"/": true},
		flashSize: 4194304,
		memFree:   111168,
		machineID: "a4cf12345678",
		uname:     "(sysname='esp32', nodename='esp32', release='1.22.0', version='v1.22.0 on 2023-12-27', machine='ESP32 module with ESP32')",
	}
}

var (
	reOpenWrite = regexp.MustCompile(`^_f = open\("([^"]+)", "(wb|ab)"\)$`)
	reWriteHex  = regexp.MustCompile(`^_f\.write\(ubinascii\.unhexlify\('([0-9a-f]*)'\)\)$`)
	reReadFile  = regexp.MustCompile(`^import ubinascii\n_f = open\("([^"]+)", "rb"\)\nprint\(ubinascii\.hexlify\(_f\.read\(\)\)\.decode\(\)\)\n_f\.close\(\)$`)
	reListDir   = regexp.MustCompile(`^import os\nprint\(os\.listdir\("([^"]*)"\)\)$`)
	reStat      = regexp.MustCompile(`^import os\nprint\(os\.stat\("([^"]+)"\)\[0\]\)$`)
	reRemove    = regexp.MustCompile(`^import os\nos\.remove\("([^"]+)"\)$`)
	reMkdir     = regexp.MustCompile(`^import os\nos\.mkdir\("([^"]+)"\)$`)
	reRmdir     = regexp.MustCompile(`^import os\nos\.rmdir\("([^"]+)"\)$`)
)

func (f *fakeBoard) Execute(command string, _ time.Duration) (*repl.ExecResult, error) {
	f.commands = append(f.commands, command)

	switch {
	case command == "import ubinascii" || command == "_f.close()":
		return okResult("")

	case command == "import os\nprint(os.uname())":
		if f.uname == "" {
			return raised("AttributeError: 'module' object has no attribute 'uname'")
		}
		return okResult(f.uname)

	case command == "import esp\nprint(esp.flash_size())":
		if f.failFlash {
			return raised("ImportError: no module named 'esp'")
		}
		return okResult(itoa(f.flashSize))

	case command == "import gc\nprint(gc.mem_free())":
		if f.failMem {
			return raised("ImportError: no module named 'gc'")
		}
		return okResult(itoa(f.memFree))

	case command == "import machine\nimport ubinascii\nprint(ubinascii.hexlify(machine.unique_id()).decode())":
		if f.failMAC {
			return raised("ImportError: no module named 'machine'")
		}
		return okResult(f.machineID)
	}

	if m := reOpenWrite.FindStringSubmatch(command); m != nil {
		f.openPath = m[1]
		if m[2] == "wb" {
			f.files[m[1]] = []byte{}
		} else if _, ok := f.files[m[1]]; !ok {
			f.files[m[1]] = []byte{}
		}
		return okResult("")
	}

	if m := reWriteHex.FindStringSubmatch(command); m != nil {
		data, err := hex.DecodeString(m[1])
		if err != nil {
			return raised("ValueError: odd-length string")
		}
		f.files[f.openPath] = append(f.files[f.openPath], data...)
		return okResult(itoa(int64(len(data))))
	}

	if m := reReadFile.FindStringSubmatch(command); m != nil {
		data, ok := f.files[m[1]]
		if !ok {
			return enoent(m[1])
		}
		return okResult(hex.EncodeToString(data))
	}

	if m := reListDir.FindStringSubmatch(command); m != nil {
		return okResult(f.listing(m[1]))
	}

	if m := reStat.FindStringSubmatch(command); m != nil {
		if f.statBroken {
			return raised("OSError: stat unsupported")
		}
		if f.dirs[m[1]] {
			return okResult("16384")
		}
		if _, ok := f.files[m[1]]; ok {
			return okResult("32768")
		}
		return enoent(m[1])
	}

	if m := reRemove.FindStringSubmatch(command); m != nil {
		if _, ok := f.files[m[1]]; !ok {
			return enoent(m[1])
		}
		delete(f.files, m[1])
		return okResult("")
	}

	if m := reMkdir.FindStringSubmatch(command); m != nil {
		f.dirs[m[1]] = true
		return okResult("")
	}

	if m := reRmdir.FindStringSubmatch(command); m != nil {
		if !f.dirs[m[1]] {
			return enoent(m[1])
		}
		delete(f.dirs, m[1])
		return okResult("")
	}

	return raised("SyntaxError: invalid syntax")
}

func (f *fakeBoard) listing(dir string) string {
	seen := make(map[string]bool)
	for p := range f.files {
		if path.Dir(p) == dir {
			seen[path.Base(p)] = true
		}
	}
	for p, ok := range f.dirs {
		if ok && p != dir && path.Dir(p) == dir {
			seen[path.Base(p)] = true
		}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)

	out := "["
	for i, name := range names {
		if i > 0 {
			out += ", "
		}
		out += "'" + name + "'"
	}
	return out + "]"
}

func okResult(output string) (*repl.ExecResult, error) {
	return &repl.ExecResult{
		Output:    output,
		Duration:  time.Millisecond,
		Timestamp: time.Now(),
	}, nil
}

func raised(lastLine string) (*repl.ExecResult, error) {
	return &repl.ExecResult{
		ErrOutput: "Traceback (most recent call last):\n  File \"<stdin>\", line 1, in <module>\n" + lastLine,
		ExitCode:  1,
		Duration:  time.Millisecond,
		Timestamp: time.Now(),
	}, nil
}

func enoent(p string) (*repl.ExecResult, error) {
	return raised("OSError: [Errno 2] ENOENT: " + p)
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}

// cannedExecutor returns fixed results keyed by command, for parser and
// classification tests that do not need filesystem behavior.
type cannedExecutor struct {
	results  map[string]*repl.ExecResult
	fallback *repl.ExecResult
}

func (c *cannedExecutor) Execute(command string, _ time.Duration) (*repl.ExecResult, error) {
	if res, ok := c.results[command]; ok {
		return res, nil
	}
	if c.fallback != nil {
		return c.fallback, nil
	}
	return &repl.ExecResult{}, nil
}
