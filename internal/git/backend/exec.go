package backend

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"
)

const maxLineSize = 16 << 20

// ExecRunner runs invocations with os/exec.
type ExecRunner struct {
	log *slog.Logger
}

func NewExecRunner(log *slog.Logger) *ExecRunner {
	if log == nil {
		log = slog.Default()
	}
	return &ExecRunner{log: log}
}

func (r *ExecRunner) Run(ctx context.Context, inv Invocation) (Result, error) {
	program := inv.program()
	// #nosec G204 -- program and arguments are assembled by this module, never shell interpolated
	cmd := exec.CommandContext(ctx, program, inv.Args...)
	cmd.Dir = inv.Dir
	if len(inv.Env) > 0 {
		cmd.Env = append(os.Environ(), inv.Env...)
	}
	if inv.Stdin != nil {
		cmd.Stdin = inv.Stdin
	}

	var emitMu sync.Mutex
	emit := func(stream Stream, line string) {
		if inv.OnLine == nil {
			return
		}
		emitMu.Lock()
		defer emitMu.Unlock()
		inv.OnLine(stream, line)
	}

	var stdoutPipe io.ReadCloser
	if inv.Stdout != nil {
		cmd.Stdout = inv.Stdout
	} else {
		pipe, err := cmd.StdoutPipe()
		if err != nil {
			return Result{}, &LaunchError{Program: program, Err: err}
		}
		stdoutPipe = pipe
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return Result{}, &LaunchError{Program: program, Err: err}
	}

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return Result{}, &LaunchError{Program: program, Err: err}
	}

	var stderr bytes.Buffer
	var wg sync.WaitGroup
	var scanErrs [2]error
	if stdoutPipe != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			scanErrs[0] = scanLines(stdoutPipe, func(line string) {
				emit(StreamStdout, line)
			})
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		scanErrs[1] = scanLines(stderrPipe, func(line string) {
			stderr.WriteString(line)
			stderr.WriteByte('\n')
			emit(StreamStderr, line)
		})
	}()
	wg.Wait()
	waitErr := cmd.Wait()

	res := Result{Stderr: stderr.String()}
	if cmd.ProcessState != nil {
		res.ExitCode = cmd.ProcessState.ExitCode()
	}
	r.log.Debug("process finished",
		slog.String("program", program),
		slog.Any("args", inv.Args),
		slog.Int("exit_code", res.ExitCode),
		slog.Duration("elapsed", time.Since(start)),
	)

	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) && ctx.Err() == nil {
			return res, &CommandError{
				Program:  program,
				Args:     append([]string(nil), inv.Args...),
				ExitCode: exitErr.ExitCode(),
				Stderr:   res.Stderr,
			}
		}
		if ctx.Err() != nil {
			return res, fmt.Errorf("%s %s: %w", program, subcommand(inv.Args), ctx.Err())
		}
		return res, fmt.Errorf("%s %s: %w", program, subcommand(inv.Args), waitErr)
	}
	for _, err := range scanErrs {
		if err != nil {
			return res, fmt.Errorf("read %s output: %w", program, err)
		}
	}
	return res, nil
}

func scanLines(r io.Reader, fn func(string)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		fn(strings.TrimRight(scanner.Text(), "\r"))
	}
	if err := scanner.Err(); err != nil {
		// Drain so the child never blocks on a full pipe.
		_, _ = io.Copy(io.Discard, r)
		return err
	}
	return nil
}

var _ Runner = (*ExecRunner)(nil)
