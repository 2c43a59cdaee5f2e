package cmd

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommandWiring(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, want := range []string{"serve", "http", "plan", "browse", "version"} {
		assert.True(t, names[want], "command %q not registered", want)
	}

	var planSubs []string
	for _, c := range planCmd.Commands() {
		planSubs = append(planSubs, c.Name())
	}
	assert.ElementsMatch(t, []string{"new", "list"}, planSubs)
}

func TestBuildAppFileBackend(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "taskplan.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
storage:
  backend: file
  file:
    path: `+filepath.Join(dir, "plans.json")+`
`), 0o644))

	origCfg := cfgFile
	cfgFile = cfgPath
	defer func() { cfgFile = origCfg }()

	a, err := buildApp(context.Background())
	require.NoError(t, err)
	defer a.cleanup()

	require.NotNil(t, a.service)

	p, err := a.service.CreatePlan(context.Background(), "n", "d", "b", "c")
	require.NoError(t, err)
	assert.NotEmpty(t, p.ID)
}

func TestBuildAppBadConfig(t *testing.T) {
	origCfg := cfgFile
	cfgFile = filepath.Join(t.TempDir(), "missing.yaml")
	defer func() { cfgFile = origCfg }()

	_, err := buildApp(context.Background())
	assert.Error(t, err)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "long name…", truncate("long name that overflows", 10))
}
