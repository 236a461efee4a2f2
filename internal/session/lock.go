// Package session keeps two weekplan processes from editing the same store
// at once. The lock is advisory: a lockfile next to the data records the
// owning process, and a lock whose process is gone is taken over.
package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/go-ps"

	"github.com/julianstephens/weekplan/internal/constants"
	"github.com/julianstephens/weekplan/internal/logger"
)

var (
	findProcessFunc = ps.FindProcess
	getpidFunc      = os.Getpid
)

// ErrLocked is returned when another live process holds the lock.
var ErrLocked = errors.New("another weekplan session is running")

// Holder describes the process recorded in a lockfile.
type Holder struct {
	PID        int
	Executable string
	Since      time.Time
}

// Lock is a held session lock.
type Lock struct {
	path string
	pid  int
}

// Path returns the lockfile location for a lock directory.
func Path(dir string) string {
	return filepath.Join(dir, constants.SessionLockfileName)
}

// Acquire takes the lock in dir. A stale lock is replaced silently; a live
// one yields ErrLocked unless force is set.
func Acquire(dir string, force bool) (*Lock, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}

	path := Path(dir)
	pid := getpidFunc()
	content := encode(Holder{PID: pid, Executable: executableName(), Since: time.Now().UTC()})

	for attempt := 0; attempt < 2; attempt++ {
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
		if err == nil {
			_, werr := f.WriteString(content)
			cerr := f.Close()
			if werr != nil || cerr != nil {
				_ = os.Remove(path)
				return nil, fmt.Errorf("failed to write lockfile: %w", errors.Join(werr, cerr))
			}
			return &Lock{path: path, pid: pid}, nil
		}
		if !os.IsExist(err) {
			return nil, fmt.Errorf("failed to create lockfile: %w", err)
		}

		holder, live, err := Inspect(dir)
		if err != nil {
			logger.Warn("Replacing unreadable lockfile", "path", path, "error", err)
		} else if live && holder.PID != pid {
			if !force {
				return nil, fmt.Errorf("%w (pid %d since %s)", ErrLocked, holder.PID, holder.Since.Local().Format(time.Kitchen))
			}
			logger.Warn("Overriding live session lock", "pid", holder.PID)
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to remove stale lockfile: %w", err)
		}
	}
	return nil, fmt.Errorf("%w: lockfile keeps reappearing at %s", ErrLocked, path)
}

// Inspect reads the lockfile in dir. live is false when no lockfile exists
// or its process has exited.
func Inspect(dir string) (Holder, bool, error) {
	data, err := os.ReadFile(Path(dir))
	if err != nil {
		if os.IsNotExist(err) {
			return Holder{}, false, nil
		}
		return Holder{}, false, err
	}

	holder, err := decode(string(data))
	if err != nil {
		return Holder{}, false, err
	}

	proc, err := findProcessFunc(holder.PID)
	if err != nil || proc == nil {
		return holder, false, nil
	}
	// A recycled PID running some other program does not count.
	if holder.Executable != "" && proc.Executable() != holder.Executable {
		return holder, false, nil
	}
	return holder, true, nil
}

// Release removes the lockfile if this process still owns it.
func (l *Lock) Release() error {
	if l == nil {
		return nil
	}
	data, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	holder, err := decode(string(data))
	if err != nil || holder.PID != l.pid {
		return nil
	}
	return os.Remove(l.path)
}

func executableName() string {
	exe, err := os.Executable()
	if err != nil {
		return ""
	}
	return filepath.Base(exe)
}

// Lockfile format: pid|executable|RFC3339 start time.
func encode(h Holder) string {
	return fmt.Sprintf("%d|%s|%s\n", h.PID, h.Executable, h.Since.Format(time.RFC3339))
}

func decode(content string) (Holder, error) {
	parts := strings.Split(strings.TrimSpace(content), "|")
	if len(parts) != 3 {
		return Holder{}, errors.New("lockfile is malformed")
	}
	pid, err := strconv.Atoi(parts[0])
	if err != nil || pid <= 0 {
		return Holder{}, errors.New("invalid process ID in lockfile")
	}
	since, err := time.Parse(time.RFC3339, parts[2])
	if err != nil {
		return Holder{}, errors.New("invalid start time in lockfile")
	}
	return Holder{PID: pid, Executable: parts[1], Since: since}, nil
}
