package scorer

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"
)

// probabilityPrefix is the stable line protocol the classifier prints on
// stdout. It survives host-language changes on either side of the boundary.
const probabilityPrefix = "VENUE_PROBABILITY:"

// maxOutputLine caps a single classifier output line.
const maxOutputLine = 1 << 20

// Scorer turns a directory of venue photos into a single probability.
type Scorer interface {
	Score(ctx context.Context, inputDir, modelPath, outputDir string, saveNegative bool) (float64, error)
}

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, onStdout func(string)) error
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// Client invokes the classifier script as a subprocess.
type Client struct {
	python  string
	script  string
	timeout time.Duration
	exec    Executor
}

// New constructs a subprocess scorer.
func New(python, script string, timeoutSeconds int, opts ...Option) (*Client, error) {
	python = strings.TrimSpace(python)
	if python == "" {
		return nil, errors.New("scorer interpreter required")
	}
	script = strings.TrimSpace(script)
	if script == "" {
		return nil, errors.New("scorer script required")
	}
	client := &Client{
		python:  python,
		script:  script,
		timeout: time.Duration(timeoutSeconds) * time.Second,
		exec:    commandExecutor{},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Score runs the classifier over inputDir and parses the first probability
// line from its stdout. A missing probability line scores 0.0; a non-zero
// exit status is a hard failure for the venue.
func (c *Client) Score(ctx context.Context, inputDir, modelPath, outputDir string, saveNegative bool) (float64, error) {
	if strings.TrimSpace(inputDir) == "" {
		return 0, errors.New("input directory required")
	}

	runCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	args := []string{
		c.script,
		"--input_path", inputDir,
		"--model_path", modelPath,
		"--save_path", outputDir,
		"--save-negative", strconv.FormatBool(saveNegative),
	}

	probability := 0.0
	found := false
	err := c.exec.Run(runCtx, c.python, args, func(line string) {
		if found {
			return
		}
		if value, ok := parseProbability(line); ok {
			probability = value
			found = true
		}
	})
	if err != nil {
		return 0, fmt.Errorf("score %s: %w", inputDir, err)
	}
	return probability, nil
}

func parseProbability(line string) (float64, bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, probabilityPrefix) {
		return 0, false
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimPrefix(line, probabilityPrefix)), 64)
	if err != nil {
		return 0, false
	}
	return value, true
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string, onStdout func(string)) error {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start command: %w", err)
	}

	var wg sync.WaitGroup
	var scanErr error
	var once sync.Once

	scan := func(r io.Reader, forward func(string)) {
		defer wg.Done()
		scanner := bufio.NewScanner(r)
		// Classifier progress lines can exceed bufio's default 64KB cap.
		scanner.Buffer(make([]byte, 0, 64*1024), maxOutputLine)
		for scanner.Scan() {
			forward(scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			once.Do(func() {
				scanErr = err
			})
		}
	}

	wg.Add(2)
	go scan(stdout, func(line string) {
		if onStdout != nil {
			onStdout(line)
		}
	})
	go scan(stderr, func(line string) {
		fmt.Fprintln(os.Stderr, line)
	})

	wg.Wait()
	if scanErr != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return fmt.Errorf("scan output: %w", scanErr)
	}
	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("wait command: %w", err)
	}
	return nil
}
