package process

import (
	"bytes"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestProcess creates a Process with short timeouts for testing.
func newTestProcess(command string) *Process {
	p := NewProcess("test", command, testLogger())
	p.SetTimeouts(200*time.Millisecond, 100*time.Millisecond, 100*time.Millisecond)
	return p
}

// waitDone waits for the process to exit, fails test on timeout.
func waitDone(t *testing.T, p *Process, timeout time.Duration) {
	t.Helper()
	select {
	case <-p.Done():
	case <-time.After(timeout):
		t.Fatal("timeout waiting for process to exit")
	}
}

type collector struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (c *collector) write(p []byte) {
	c.mu.Lock()
	c.buf.Write(p)
	c.mu.Unlock()
}

func (c *collector) String() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.String()
}

func TestPipeRoundTrip(t *testing.T) {
	p := newTestProcess("cat")
	var out collector
	p.SetDataHandler(out.write)

	if err := p.Start(); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	if _, err := p.Stdin().Write([]byte("frame-1 frame-2")); err != nil {
		t.Fatalf("write stdin: %v", err)
	}

	if code := p.Stop(); code != 0 {
		t.Errorf("expected exit code 0, got %d", code)
	}
	if got := out.String(); got != "frame-1 frame-2" {
		t.Errorf("stdout = %q, want %q", got, "frame-1 frame-2")
	}
	if p.State() != StateExited {
		t.Errorf("state = %s, want %s", p.State(), StateExited)
	}
}

func TestStopSendsSIGINTWhenStdinIgnored(t *testing.T) {
	p := newTestProcess(`sh -c "trap 'exit 0' INT TERM; while :; do sleep 0.05; done"`)
	p.SetTimeouts(50*time.Millisecond, 500*time.Millisecond, 100*time.Millisecond)

	if err := p.Start(); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	time.Sleep(50 * time.Millisecond)

	if code := p.Stop(); code != 0 {
		t.Errorf("expected exit code 0, got %d", code)
	}
}

func TestForceKillOnTimeout(t *testing.T) {
	// Process that ignores SIGINT and stdin
	p := newTestProcess(`sh -c "trap '' INT; sleep 10"`)
	p.SetTimeouts(50*time.Millisecond, 50*time.Millisecond, 200*time.Millisecond)

	if err := p.Start(); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	time.Sleep(50 * time.Millisecond)

	// Process was killed, expect 137 (128 + 9 for SIGKILL)
	if code := p.Stop(); code != 137 {
		t.Errorf("expected exit code 137, got %d", code)
	}
}

func TestProcessAlreadyExited(t *testing.T) {
	p := newTestProcess("true")
	if err := p.Start(); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	waitDone(t, p, time.Second)

	// Stop after process has already exited - should not block or panic
	if code := p.Stop(); code != 0 {
		t.Errorf("expected exit code 0, got %d", code)
	}
	if code := p.Stop(); code != 0 {
		t.Errorf("second Stop() = %d, want 0", code)
	}
}

func TestProcessExitWithError(t *testing.T) {
	p := newTestProcess("sh -c 'exit 42'")
	if err := p.Start(); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	waitDone(t, p, time.Second)
	if code := p.ExitCode(); code != 42 {
		t.Errorf("expected exit code 42, got %d", code)
	}
}

func TestStartErrors(t *testing.T) {
	tests := []struct {
		name    string
		command string
	}{
		{"unclosed quote", `echo "unclosed`},
		{"empty", ""},
		{"missing binary", "/nonexistent/command/that/does/not/exist"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestProcess(tt.command)
			if err := p.Start(); err == nil {
				t.Fatal("expected Start() to fail")
			}
		})
	}
}

func TestStartTwice(t *testing.T) {
	p := newTestProcess("cat")
	if err := p.Start(); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	defer p.Stop()
	if err := p.Start(); err == nil {
		t.Error("second Start() should fail")
	}
}

func TestStopBeforeStart(t *testing.T) {
	p := newTestProcess("sleep 10")
	if code := p.Stop(); code != 0 {
		t.Errorf("Stop() before Start = %d, want 0", code)
	}
	select {
	case <-p.Done():
	default:
		t.Error("Done() should be closed after Stop on an idle process")
	}
}

func TestGetCommand(t *testing.T) {
	p := newTestProcess("echo hello")
	if got := p.GetCommand(); got != "echo hello" {
		t.Errorf("GetCommand() = %q, want %q", got, "echo hello")
	}
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		command string
		want    []string
	}{
		{`echo hello\ world`, []string{"echo", "hello world"}},
		{`sh -c "a b"`, []string{"sh", "-c", "a b"}},
		{`sh -c 'say "hi"'`, []string{"sh", "-c", `say "hi"`}},
		{"  ffmpeg   -i  pipe:0 ", []string{"ffmpeg", "-i", "pipe:0"}},
	}
	for _, tt := range tests {
		got, err := parseCommand(tt.command)
		if err != nil {
			t.Fatalf("parseCommand(%q) unexpected error: %v", tt.command, err)
		}
		if len(got) != len(tt.want) {
			t.Fatalf("parseCommand(%q) = %v, want %v", tt.command, got, tt.want)
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("parseCommand(%q)[%d] = %q, want %q", tt.command, i, got[i], tt.want[i])
			}
		}
	}
}

type recordingLogger struct {
	mu     sync.Mutex
	levels []string
}

func (l *recordingLogger) add(level string) {
	l.mu.Lock()
	l.levels = append(l.levels, level)
	l.mu.Unlock()
}

func (l *recordingLogger) Debug(string, ...any) { l.add("debug") }
func (l *recordingLogger) Info(string, ...any)  { l.add("info") }
func (l *recordingLogger) Warn(string, ...any)  { l.add("warn") }
func (l *recordingLogger) Error(string, ...any) { l.add("error") }

func TestStderrLogLevels(t *testing.T) {
	cmd := `echo "[error] e" >&2; echo "[warning] w" >&2; echo "[debug] d" >&2; echo "plain" >&2`
	p := newTestProcess(`sh -c '` + cmd + `'`)
	out := &recordingLogger{}
	p.SetLogParser(out, func(line string) (string, string) {
		if len(line) > 2 && line[0] == '[' {
			for i := 1; i < len(line); i++ {
				if line[i] == ']' {
					return line[1:i], line[i+1:]
				}
			}
		}
		return "info", line
	})
	p.SetDataHandler(func([]byte) {})

	if err := p.Start(); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	waitDone(t, p, time.Second)

	out.mu.Lock()
	defer out.mu.Unlock()
	want := []string{"error", "warn", "debug", "info"}
	if len(out.levels) != len(want) {
		t.Fatalf("levels = %v, want %v", out.levels, want)
	}
	for i := range want {
		if out.levels[i] != want[i] {
			t.Errorf("levels[%d] = %s, want %s", i, out.levels[i], want[i])
		}
	}
}

func TestLastErrorsKeepsRecentLines(t *testing.T) {
	script := `for i in 1 2 3 4 5 6 7; do echo "[error] e$i" >&2; done; echo "[info] done" >&2`
	p := newTestProcess(`sh -c '` + script + `'`)
	p.SetLogParser(&recordingLogger{}, func(line string) (string, string) {
		level, msg, _ := strings.Cut(strings.TrimPrefix(line, "["), "] ")
		return level, msg
	})
	p.SetDataHandler(func([]byte) {})

	if err := p.Start(); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	waitDone(t, p, time.Second)

	got := strings.Join(p.LastErrors(), ",")
	if want := "e3,e4,e5,e6,e7"; got != want {
		t.Errorf("LastErrors() = %s, want %s", got, want)
	}
}
