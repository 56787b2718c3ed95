package lockfile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	oerrors "github.com/saby/builder-sub003/internal/errors"
	"github.com/saby/builder-sub003/internal/output"
)

// Options configures Lock.
type Options struct {
	// Identity overrides the process identity. Zero value means the current
	// process with a fresh run id.
	Identity Identity

	// OnLastBuildFailed is invoked when the previous run ended in FAILED.
	// Clearing the cache is the caller's decision.
	OnLastBuildFailed func(cacheDir string)
}

// Session is the lock held by one build run. It replaces process-wide lock
// state: every later call goes through the session returned by Lock.
type Session struct {
	mu       sync.Mutex
	cacheDir string
	identity Identity
	state    CacheState
	previous CacheState
}

// Path returns the lock file path for a cache directory.
func Path(cacheDir string) string {
	return filepath.Join(cacheDir, FileName)
}

// Load reads the persisted cache state. A missing or unparsable lock file is
// reported as StateUnknown.
func Load(cacheDir string) CacheState {
	info, err := Inspect(cacheDir)
	if err != nil {
		return StateUnknown
	}
	return info.State
}

// Inspect returns the full persisted record. A missing file yields an
// UNKNOWN record and no error.
func Inspect(cacheDir string) (Info, error) {
	data, err := os.ReadFile(Path(cacheDir))
	if err != nil {
		if os.IsNotExist(err) {
			return Info{State: StateUnknown}, nil
		}
		return Info{State: StateUnknown}, fmt.Errorf("reading lock file: %w", err)
	}

	var info Info
	if err := json.Unmarshal(data, &info); err != nil {
		return Info{State: StateUnknown}, fmt.Errorf("parsing lock file: %w", err)
	}
	if !info.State.valid() {
		return Info{State: StateUnknown}, fmt.Errorf("parsing lock file: unknown cache state %q", info.State)
	}
	return info, nil
}

// Lock marks the cache as PENDING for this process and returns the session.
func Lock(cacheDir string, opts Options) (*Session, error) {
	id := opts.Identity
	if id.PID == 0 {
		id.PID = os.Getpid()
	}
	if id.RunID == "" {
		id.RunID = uuid.Must(uuid.NewV7()).String()
	}

	prev, _ := Inspect(cacheDir)
	switch prev.State {
	case StatePending:
		output.Warn("build cache was left PENDING: another process may be using it or the previous build crashed",
			"cache", cacheDir, "pid", prev.PID)
	case StateFailed:
		output.Debug("previous build failed", "cache", cacheDir, "pid", prev.PID)
		if opts.OnLastBuildFailed != nil {
			opts.OnLastBuildFailed(cacheDir)
		}
	}

	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}

	s := &Session{cacheDir: cacheDir, identity: id, previous: prev.State}
	if err := write(cacheDir, Info{Identity: id, State: StatePending}); err != nil {
		return nil, err
	}
	s.state = StatePending

	output.Debug("build cache locked", "cache", cacheDir, "pid", id.PID, "run", id.RunID)
	return s, nil
}

// Identity returns the identity recorded at Lock time.
func (s *Session) Identity() Identity {
	return s.identity
}

// Previous returns the state the cache was left in by the run before this
// one. Cached results are reusable only when it is Trusted.
func (s *Session) Previous() CacheState {
	return s.previous
}

// State returns the in-memory state of the session.
func (s *Session) State() CacheState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Unlock verifies that this process still owns the lock file and records the
// final state. An empty final state means StatePassed.
func (s *Session) Unlock(final CacheState) error {
	if final == "" {
		final = StatePassed
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	lockPath := Path(s.cacheDir)
	physical, _ := Inspect(s.cacheDir)
	if physical.State == StateUnknown {
		return oerrors.NewLockFileMissingError(lockPath)
	}
	if physical.Identity != s.identity {
		return oerrors.NewConcurrentAccessError(lockPath, physical.PID, s.identity.PID)
	}

	if err := write(s.cacheDir, Info{Identity: s.identity, State: final}); err != nil {
		return err
	}
	s.state = final

	output.Debug("build cache unlocked", "cache", s.cacheDir, "state", final)
	return nil
}

// ExitHandler records FAILED when the session is still PENDING. It is meant
// for abnormal termination paths and is safe to call more than once.
func (s *Session) ExitHandler() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StatePending {
		return
	}
	if err := write(s.cacheDir, Info{Identity: s.identity, State: StateFailed}); err != nil {
		output.Error("recording failed build state", "cache", s.cacheDir, "error", err)
		return
	}
	s.state = StateFailed
}

func write(cacheDir string, info Info) error {
	data, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("encoding lock file: %w", err)
	}

	tmp, err := os.CreateTemp(cacheDir, FileName+".tmp.*")
	if err != nil {
		return fmt.Errorf("writing lock file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("writing lock file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing lock file: %w", err)
	}
	if err := os.Rename(tmpName, Path(cacheDir)); err != nil {
		return fmt.Errorf("writing lock file: %w", err)
	}
	return nil
}
