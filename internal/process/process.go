package process

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/smazurov/camalbum/internal/logging"
)

// LogParser parses a log line and returns the log level and message.
// Used to extract structured log info from process output (ffmpeg, gstreamer, etc.)
type LogParser func(line string) (level, msg string)

// DataHandler receives raw stdout bytes. The slice is only valid during the call.
type DataHandler func(p []byte)

// State of a Process.
type State string

// Process states.
const (
	StateIdle     State = "idle"     // Not started
	StateRunning  State = "running"  // Active
	StateStopping State = "stopping" // Stop in progress
	StateExited   State = "exited"   // Process has exited
)

// Process manages the lifecycle of a piped subprocess.
type Process struct {
	id            string
	command       string
	logger        logging.Logger
	processLogger logging.Logger // logger for process output (nil = use logger)
	logParser     LogParser      // parses process output for log level (nil = no parsing)
	dataHandler   DataHandler

	gracefulTimeout time.Duration // time to exit on its own after stdin closes
	signalTimeout   time.Duration // time to exit after SIGINT before force kill
	killTimeout     time.Duration // timeout after Kill() before giving up
	readBufferSize  int

	mu       sync.Mutex
	state    State
	cmd      *exec.Cmd
	stdin    io.WriteCloser
	done     chan struct{}
	exitCode int
	errLines []string // most recent error level output, oldest first
}

// maxErrLines bounds how much error output is kept for LastErrors.
const maxErrLines = 5

// NewProcess creates a new process.
func NewProcess(id, command string, logger logging.Logger) *Process {
	return &Process{
		id:              id,
		command:         command,
		logger:          logger,
		state:           StateIdle,
		gracefulTimeout: 5 * time.Second,
		signalTimeout:   5 * time.Second,
		killTimeout:     5 * time.Second,
		readBufferSize:  64 * 1024,
		done:            make(chan struct{}),
	}
}

// GetCommand returns the command string.
func (p *Process) GetCommand() string {
	return p.command
}

// SetLogParser sets a custom logger and log parser for process output.
// The logger is used for process output (e.g., module="ffmpeg").
// The parser extracts log level from process-specific output formats.
func (p *Process) SetLogParser(logger logging.Logger, parser LogParser) {
	p.processLogger = logger
	p.logParser = parser
}

// SetDataHandler routes stdout to fn instead of the logger. Must be called before Start.
func (p *Process) SetDataHandler(fn DataHandler) {
	p.dataHandler = fn
}

// SetTimeouts overrides the stop timeouts. Zero values keep the defaults.
func (p *Process) SetTimeouts(graceful, signal, kill time.Duration) {
	if graceful > 0 {
		p.gracefulTimeout = graceful
	}
	if signal > 0 {
		p.signalTimeout = signal
	}
	if kill > 0 {
		p.killTimeout = kill
	}
}

// State returns the current state.
func (p *Process) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Done is closed once the process has exited and its output is drained.
func (p *Process) Done() <-chan struct{} {
	return p.done
}

// ExitCode returns the exit code. Only meaningful after Done is closed.
func (p *Process) ExitCode() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exitCode
}

// LastErrors returns the most recent error level lines the process printed,
// oldest first. Callers use them to explain a non-zero exit.
func (p *Process) LastErrors() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.errLines...)
}

func (p *Process) recordError(line string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.errLines) == maxErrLines {
		p.errLines = append(p.errLines[:0], p.errLines[1:]...)
	}
	p.errLines = append(p.errLines, line)
}

// Stdin returns the write end of the process's stdin. Nil before Start.
func (p *Process) Stdin() io.Writer {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stdin
}

// Start parses the command and starts the subprocess.
func (p *Process) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != StateIdle {
		return fmt.Errorf("process %s already started", p.id)
	}

	args, err := parseCommand(p.command)
	if err != nil {
		p.logger.Error("Failed to parse command", "error", err)
		return err
	}
	if len(args) == 0 {
		p.logger.Error("Empty command")
		return fmt.Errorf("empty command")
	}

	cmd := exec.Command(args[0], args[1:]...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		p.logger.Error("Failed to start process", "error", err, "command", p.command)
		return err
	}

	p.cmd = cmd
	p.stdin = stdin
	p.state = StateRunning
	p.logger.Info("Process started", "id", p.id, "pid", cmd.Process.Pid, "command", p.command)

	var output sync.WaitGroup
	output.Add(2)
	go func() {
		defer output.Done()
		if p.dataHandler != nil {
			p.streamData(stdout)
		} else {
			p.streamOutput(stdout, "stdout")
		}
	}()
	go func() {
		defer output.Done()
		p.streamOutput(stderr, "stderr")
	}()

	go func() {
		// Wait must follow the pipe readers, otherwise it closes them mid-read.
		output.Wait()
		err := cmd.Wait()
		code := exitCodeFromError(err)
		if err != nil && code == 1 {
			p.logger.Error("Process exited with error", "error", err)
		}
		p.mu.Lock()
		p.exitCode = code
		p.state = StateExited
		p.mu.Unlock()
		p.logger.Info("Process exited", "id", p.id, "exit_code", code)
		close(p.done)
	}()

	return nil
}

// Stop closes stdin so the process can flush and exit, escalating to SIGINT
// and then SIGKILL if it does not. Returns the exit code. Safe to call more
// than once and on a process that already exited.
func (p *Process) Stop() int {
	p.mu.Lock()
	switch p.state {
	case StateIdle:
		p.state = StateExited
		close(p.done)
		p.mu.Unlock()
		return 0
	case StateRunning:
		p.state = StateStopping
		if p.stdin != nil {
			_ = p.stdin.Close()
		}
	}
	p.mu.Unlock()

	select {
	case <-p.done:
		return p.ExitCode()
	case <-time.After(p.gracefulTimeout):
	}

	p.sendStopSignal()
	return p.waitForExit(p.signalTimeout)
}

// exitCodeFromError extracts exit code from process error.
// Returns 0 for nil error, the exit code for ExitError, or 1 for other errors.
func exitCodeFromError(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return 1
}

// sendStopSignal sends SIGINT to the subprocess without waiting.
func (p *Process) sendStopSignal() {
	if p.cmd == nil || p.cmd.Process == nil {
		return
	}
	p.logger.Info("Sending SIGINT to process", "pid", p.cmd.Process.Pid)
	if err := p.cmd.Process.Signal(syscall.SIGINT); err != nil && !errors.Is(err, os.ErrProcessDone) {
		p.logger.Warn("Failed to send SIGINT", "error", err)
	}
}

// waitForExit waits for the process to exit with a timeout, force-killing if needed.
func (p *Process) waitForExit(timeout time.Duration) int {
	select {
	case <-p.done:
		return p.ExitCode()
	case <-time.After(timeout):
		p.logger.Warn("Graceful shutdown timeout, forcing kill", "timeout", timeout)
		// Kill the whole group so children holding our pipes go too.
		if err := syscall.Kill(-p.cmd.Process.Pid, syscall.SIGKILL); err != nil {
			// "os: process already finished" is OK - process exited between timeout and kill
			if err := p.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
				p.logger.Error("Failed to kill process", "error", err)
			}
		}
		select {
		case <-p.done:
		case <-time.After(p.killTimeout):
			p.logger.Error("Process did not exit after kill signal")
		}
		return 137
	}
}

func (p *Process) streamData(reader io.Reader) {
	buf := make([]byte, p.readBufferSize)
	for {
		n, err := reader.Read(buf)
		if n > 0 {
			p.dataHandler(buf[:n])
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, os.ErrClosed) {
				p.logger.Warn("Error reading output", "source", "stdout", "error", err)
			}
			return
		}
	}
}

// streamOutput logs each output line at the level the LogParser reports,
// or info without a parser. Error lines are also kept for LastErrors.
func (p *Process) streamOutput(reader io.Reader, source string) {
	logger := p.processLogger
	if logger == nil {
		logger = p.logger
	}

	scanner := bufio.NewScanner(reader)
	for scanner.Scan() {
		level, msg := "info", scanner.Text()
		if p.logParser != nil {
			level, msg = p.logParser(msg)
		}

		switch level {
		case "fatal", "error", "panic":
			p.recordError(msg)
			logger.Error(msg)
		case "warning":
			logger.Warn(msg)
		case "debug", "trace", "verbose":
			logger.Debug(msg)
		default:
			logger.Info(msg)
		}
	}

	if err := scanner.Err(); err != nil && !errors.Is(err, os.ErrClosed) {
		p.logger.Warn("Error reading output", "source", source, "error", err)
	}
}

// parseCommand parses a command string into arguments
// Handles quoted strings and basic escaping.
func parseCommand(command string) ([]string, error) {
	var args []string
	var current strings.Builder
	inQuote := false
	quoteChar := rune(0)

	command = strings.TrimSpace(command)
	runes := []rune(command)

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == '"' || r == '\'':
			switch {
			case !inQuote:
				inQuote = true
				quoteChar = r
			case r == quoteChar:
				inQuote = false
				quoteChar = 0
			default:
				current.WriteRune(r)
			}
		case r == ' ' && !inQuote:
			if current.Len() > 0 {
				args = append(args, current.String())
				current.Reset()
			}
		case r == '\\' && i+1 < len(runes):
			i++
			current.WriteRune(runes[i])
		default:
			current.WriteRune(r)
		}
	}

	if current.Len() > 0 {
		args = append(args, current.String())
	}

	if inQuote {
		return nil, fmt.Errorf("unclosed quote in command")
	}

	return args, nil
}
