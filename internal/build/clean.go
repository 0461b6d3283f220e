package build

import (
	"context"
	"fmt"

	"github.com/conneroisu/assetflow/internal/errors"
	"github.com/conneroisu/assetflow/internal/registry"
	"github.com/spf13/afero"
)

// Clean removes dir recursively. dir must be a project-relative path
// other than the project itself; a missing directory is not an error.
func Clean(fsys afero.Fs, dir string) error {
	if err := registry.ValidateDir(dir); err != nil {
		return errors.NewValidationError(err.Error())
	}
	if registry.Normalize(dir) == "." {
		return errors.NewValidationError(fmt.Sprintf("refusing to clean the project directory (%q)", dir))
	}
	if err := fsys.RemoveAll(registry.Normalize(dir)); err != nil {
		return errors.NewIOError("clean "+dir, err)
	}
	return nil
}

func runClean(_ context.Context, env *Env) (Result, error) {
	dir := env.Config.Build.Output
	if err := Clean(env.Fs, dir); err != nil {
		return Result{}, err
	}
	return Result{}, nil
}
