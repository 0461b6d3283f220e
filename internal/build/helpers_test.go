package build

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/conneroisu/assetflow/internal/config"
	"github.com/conneroisu/assetflow/internal/logging"
	"github.com/conneroisu/assetflow/internal/styles"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

// passCompiler returns its input unchanged, standing in for Dart Sass.
type passCompiler struct {
	err error
}

func (c *passCompiler) Compile(_ context.Context, in styles.Input) ([]byte, error) {
	if c.err != nil {
		return nil, c.err
	}
	return in.Source, nil
}

func newTestEnv(t *testing.T) *Env {
	t.Helper()

	cfg, err := config.LoadFrom(viper.New())
	require.NoError(t, err)
	reg, err := cfg.Registry()
	require.NoError(t, err)

	root := t.TempDir()
	return &Env{
		Fs:       afero.NewBasePathFs(afero.NewOsFs(), root),
		Root:     root,
		Config:   cfg,
		Registry: reg,
		Logger:   logging.NewNop(),
		Compiler: &passCompiler{},
	}
}

func writeFiles(t *testing.T, fsys afero.Fs, files map[string]string) {
	t.Helper()
	for name, content := range files {
		require.NoError(t, fsys.MkdirAll(filepath.Dir(name), 0o755))
		require.NoError(t, afero.WriteFile(fsys, name, []byte(content), 0o644))
	}
}
