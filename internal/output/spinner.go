package output

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/huh/spinner"
	"golang.org/x/term"
)

// IsTTY reports whether stderr is attached to a terminal.
func IsTTY() bool {
	return term.IsTerminal(int(os.Stderr.Fd()))
}

// SpinnerOption configures a spinner.
type SpinnerOption func(*spinnerConfig)

type spinnerConfig struct {
	title   string
	timeout time.Duration
	tty     func() bool
}

// WithTitle sets the initial spinner title.
func WithTitle(title string) SpinnerOption {
	return func(c *spinnerConfig) {
		c.title = title
	}
}

// WithTimeout bounds how long the spinner waits for the action.
func WithTimeout(timeout time.Duration) SpinnerOption {
	return func(c *spinnerConfig) {
		c.timeout = timeout
	}
}

// Progress reports the step a running action has reached. It never blocks.
type Progress func(step string)

// RunWithProgress executes an action under a spinner whose title follows the
// steps the action reports. Each step leaves its own spinner line behind.
// Without a terminal the action runs directly and steps go to the debug log.
func RunWithProgress(ctx context.Context, action func(Progress) error, opts ...SpinnerOption) error {
	cfg := &spinnerConfig{title: "Working...", tty: IsTTY}
	for _, opt := range opts {
		opt(cfg)
	}

	if !cfg.tty() {
		return action(func(step string) { Debug("progress", "step", step) })
	}

	actionCtx := ctx
	if cfg.timeout > 0 {
		var cancel context.CancelFunc
		actionCtx, cancel = context.WithTimeout(ctx, cfg.timeout)
		defer cancel()
	}

	// steps holds at most the latest unseen step.
	steps := make(chan string, 1)
	report := func(step string) {
		select {
		case <-steps:
		default:
		}
		select {
		case steps <- step:
		default:
		}
	}

	done := make(chan error, 1)
	go func() {
		done <- action(report)
	}()

	type outcome struct {
		step     string
		err      error
		finished bool
	}

	title := cfg.title
	for {
		next := make(chan outcome, 1)
		runErr := spinner.New().
			Title(title).
			Context(actionCtx).
			ActionWithErr(func(ctx context.Context) error {
				select {
				case err := <-done:
					next <- outcome{err: err, finished: true}
				case step := <-steps:
					next <- outcome{step: step}
				case <-ctx.Done():
				}
				return nil
			}).
			Run()

		select {
		case o := <-next:
			if o.finished {
				return o.err
			}
			title = o.step
			continue
		default:
		}

		if err := actionCtx.Err(); err != nil {
			return err
		}
		if runErr != nil {
			return fmt.Errorf("spinner error: %w", runErr)
		}
	}
}
