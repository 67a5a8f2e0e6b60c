package catalog

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"go.uber.org/zap"

	"odoogen/internal/logging"
	"odoogen/internal/tactile"
)

// SyncAction says what Ensure did.
type SyncAction string

const (
	ActionCloned     SyncAction = "cloned"
	ActionCheckedOut SyncAction = "checked-out"
	ActionPulled     SyncAction = "pulled"
)

// Syncer keeps the local checkout on the branch of the requested version.
type Syncer struct {
	Path       string
	Repository string
	Git        string
	executor   tactile.Executor
	log        *zap.Logger
}

// NewSyncer creates a syncer for the checkout at path.
func NewSyncer(executor tactile.Executor, path, repository string) *Syncer {
	return &Syncer{
		Path:       path,
		Repository: repository,
		Git:        "git",
		executor:   executor,
		log:        logging.Get(logging.CategoryCatalog),
	}
}

// Ensure clones the catalog when it is missing (shallow, single branch),
// otherwise checks out branch and optionally pulls. A non-zero git exit is
// returned as *tactile.CommandError.
func (s *Syncer) Ensure(ctx context.Context, branch string, pull bool) (SyncAction, error) {
	if branch == "" {
		return "", errors.New("catalog branch is required")
	}

	_, err := os.Stat(s.Path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if s.Repository == "" {
			return "", fmt.Errorf("%w: %s (no repository configured)", ErrCatalogMissing, s.Path)
		}
		s.log.Info("cloning addon catalog", zap.String("repository", s.Repository), zap.String("branch", branch))
		if err := s.git(ctx, "", "clone", s.Repository, s.Path, "--depth", "1", "--branch", branch); err != nil {
			return "", fmt.Errorf("clone catalog: %w", err)
		}
		return ActionCloned, nil
	case err != nil:
		return "", fmt.Errorf("stat catalog: %w", err)
	}

	s.log.Info("switching addon catalog branch", zap.String("path", s.Path), zap.String("branch", branch))
	if err := s.git(ctx, s.Path, "checkout", branch); err != nil {
		return "", fmt.Errorf("checkout %s: %w", branch, err)
	}
	if !pull {
		return ActionCheckedOut, nil
	}
	if err := s.git(ctx, s.Path, "pull"); err != nil {
		return ActionCheckedOut, fmt.Errorf("pull catalog: %w", err)
	}
	return ActionPulled, nil
}

func (s *Syncer) git(ctx context.Context, dir string, args ...string) error {
	cmd := tactile.Command{Binary: s.Git, Arguments: args, WorkingDirectory: dir}
	_, err := tactile.Run(ctx, s.executor, cmd)
	return err
}
