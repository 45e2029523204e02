// Package history checkpoints a project directory into a git
// repository and restores it from named checkpoints.
//
// Version control runs as a git subprocess. Subprocess failures are
// surfaced to the caller and never retried: retrying a commit could
// duplicate side effects. The two read paths with an expected "no
// history yet" state - Log and Diff - degrade to empty results instead
// of failing.
//
// Callers must flush the write coalescer before any operation that
// depends on disk state being current; the lifecycle manager enforces
// that ordering.
package history

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// VersionControlError wraps a git subprocess failure.
type VersionControlError struct {
	Op     string
	Stderr string
	Err    error
}

// Error implements the error interface.
func (e *VersionControlError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("version control failure: %s: %v: %s", e.Op, e.Err, e.Stderr)
	}
	return fmt.Sprintf("version control failure: %s: %v", e.Op, e.Err)
}

// Unwrap exposes the underlying cause to errors.Is/As.
func (e *VersionControlError) Unwrap() error { return e.Err }

// IsVersionControlFailure reports whether err came from the history
// subprocess layer.
func IsVersionControlFailure(err error) bool {
	var ve *VersionControlError
	return errors.As(err, &ve)
}

// Checkpoint is one restorable snapshot of the project directory.
type Checkpoint struct {
	ID      string    `json:"id"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

// Store wraps one project directory's git repository.
type Store struct {
	dir string
}

// New creates a history store over the project directory. Call Init
// before anything else.
func New(dir string) *Store {
	return &Store{dir: dir}
}

// ignoreRules keeps operational files (the mutation journal, temp and
// migration leftovers) out of checkpoints.
const ignoreRules = "journal.db\njournal.db-journal\njournal.db-wal\njournal.db-shm\n*.tmp\n*.bak\n"

// Init ensures a git repository exists for the project directory and,
// when the repository has no commits yet, creates an initial checkpoint
// covering the current on-disk state.
func (s *Store) Init(ctx context.Context) error {
	if _, _, err := s.git(ctx, "rev-parse", "--git-dir"); err != nil {
		if _, _, err := s.git(ctx, "init"); err != nil {
			return err
		}
	}
	// Local identity so checkpoints never depend on host git config.
	if _, _, err := s.git(ctx, "config", "user.name", "atelier"); err != nil {
		return err
	}
	if _, _, err := s.git(ctx, "config", "user.email", "atelier@localhost"); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(s.dir, ".gitignore"), []byte(ignoreRules), 0o644); err != nil {
		return &VersionControlError{Op: "init", Err: err}
	}

	if !s.hasCommits(ctx) {
		if _, err := s.Snapshot(ctx, "Initial snapshot"); err != nil {
			return err
		}
	}
	return nil
}

// Snapshot stages and commits the entire current on-disk layout as one
// checkpoint and returns its id. A snapshot with no content changes
// still produces a checkpoint; a checkpoint request is an explicit user
// action and must not silently vanish.
func (s *Store) Snapshot(ctx context.Context, message string) (string, error) {
	if message == "" {
		message = "Snapshot"
	}
	if _, _, err := s.git(ctx, "add", "-A"); err != nil {
		return "", err
	}
	if _, _, err := s.git(ctx, "commit", "--allow-empty", "-m", message); err != nil {
		return "", err
	}
	out, _, err := s.git(ctx, "rev-parse", "HEAD")
	if err != nil {
		return "", err
	}
	id := strings.TrimSpace(out)
	slog.Info("checkpoint created", "dir", s.dir, "checkpoint", id, "message", message)
	return id, nil
}

// Log returns checkpoints newest-first, capped at limit. A repository
// with no checkpoints yields an empty slice, not an error - "no
// history" is an expected state.
func (s *Store) Log(ctx context.Context, limit int) ([]Checkpoint, error) {
	if limit <= 0 {
		limit = 20
	}
	if !s.hasCommits(ctx) {
		return nil, nil
	}
	out, _, err := s.git(ctx, "log", "-n", strconv.Itoa(limit), "--pretty=format:%H%x1f%ct%x1f%s")
	if err != nil {
		return nil, err
	}

	var checkpoints []Checkpoint
	for _, line := range strings.Split(out, "\n") {
		fields := strings.SplitN(line, "\x1f", 3)
		if len(fields) != 3 {
			continue
		}
		ts, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			continue
		}
		checkpoints = append(checkpoints, Checkpoint{
			ID:      fields[0],
			Message: fields[2],
			Time:    time.Unix(ts, 0).UTC(),
		})
	}
	return checkpoints, nil
}

// Restore replaces on-disk content with the checkpoint's content. Files
// present now but absent from the checkpoint are removed - no orphans
// survive a restore. History is preserved: the branch head does not
// move, so a later Snapshot records the restoration as a new
// checkpoint.
//
// The caller must reload the document engine from disk afterwards and
// republish a full-state event.
func (s *Store) Restore(ctx context.Context, checkpointID string) error {
	if _, _, err := s.git(ctx, "rev-parse", "--verify", checkpointID+"^{commit}"); err != nil {
		return err
	}
	// Clear the worktree of everything tracked, restore the checkpoint
	// content, then drop whatever untracked debris remains. The worktree
	// is normally dirty here: flushes land on disk continuously while
	// commits happen only on explicit checkpoints, so removal must be
	// forced.
	if _, _, err := s.git(ctx, "rm", "-r", "-f", "-q", "--ignore-unmatch", "."); err != nil {
		return err
	}
	if _, _, err := s.git(ctx, "checkout", checkpointID, "--", "."); err != nil {
		return err
	}
	if _, _, err := s.git(ctx, "clean", "-fdq"); err != nil {
		return err
	}
	slog.Info("checkpoint restored", "dir", s.dir, "checkpoint", checkpointID)
	return nil
}

// Diff returns the textual diff between a checkpoint (default: the
// latest) and current on-disk state. Diff is informational; any failure
// degrades to an empty string.
func (s *Store) Diff(ctx context.Context, checkpointID string) string {
	if checkpointID == "" {
		if !s.hasCommits(ctx) {
			return ""
		}
		checkpointID = "HEAD"
	}
	out, _, err := s.git(ctx, "diff", checkpointID, "--", ".")
	if err != nil {
		slog.Debug("diff degraded to empty", "dir", s.dir, "checkpoint", checkpointID, "error", err)
		return ""
	}
	return out
}

// hasCommits reports whether the repository has at least one commit.
func (s *Store) hasCommits(ctx context.Context) bool {
	_, _, err := s.git(ctx, "rev-parse", "--verify", "HEAD")
	return err == nil
}

// git runs one git subcommand in the project directory and returns its
// stdout and stderr.
func (s *Store) git(ctx context.Context, args ...string) (string, string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = s.dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return stdout.String(), stderr.String(), &VersionControlError{
			Op:     "git " + strings.Join(args, " "),
			Stderr: strings.TrimSpace(stderr.String()),
			Err:    err,
		}
	}
	return stdout.String(), stderr.String(), nil
}
