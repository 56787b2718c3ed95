// Package lockfile guards a shared build cache directory against concurrent or
// previously aborted builds.
//
// The lock is advisory: it does not stop two processes from starting at once,
// it only stops a run from claiming success after another process touched the
// cache. State is persisted in <cacheDir>/build.lockfile:
//
//	{"processID": 4242, "runID": "0190...", "cacheState": "PENDING"}
//
// Transitions:
//
//	UNKNOWN/PASSED/FAILED --Lock--> PENDING --Unlock--> PASSED
//	PENDING --crash--> (ExitHandler) --> FAILED
package lockfile

// FileName is the lock file name inside the cache directory.
const FileName = "build.lockfile"

// CacheState describes the health of the build cache.
type CacheState string

const (
	// StateUnknown means no lock file was ever written for the cache directory.
	StateUnknown CacheState = "UNKNOWN"

	// StatePending means a run started and has not finished yet.
	StatePending CacheState = "PENDING"

	// StatePassed means the last run completed without critical failure.
	StatePassed CacheState = "PASSED"

	// StateFailed means the last run ended in a critical error or crashed.
	StateFailed CacheState = "FAILED"
)

// String returns the state name.
func (s CacheState) String() string {
	return string(s)
}

// Trusted reports whether cached artifacts may be reused under this state.
// PENDING is never trusted.
func (s CacheState) Trusted() bool {
	return s == StatePassed
}

func (s CacheState) valid() bool {
	switch s {
	case StateUnknown, StatePending, StatePassed, StateFailed:
		return true
	}
	return false
}

// Identity identifies the process that owns the lock file.
type Identity struct {
	PID   int    `json:"processID"`
	RunID string `json:"runID,omitempty"`
}

// Info is the persisted lock file record.
type Info struct {
	Identity
	State CacheState `json:"cacheState"`
}
