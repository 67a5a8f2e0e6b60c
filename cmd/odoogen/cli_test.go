package main

import (
	"bytes"
	"context"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"odoogen/internal/config"
	"odoogen/internal/registry"
	"odoogen/internal/tactile"
)

// setupCLI points the command globals at temporary directories and restores
// them when the test ends. Commands that change the host are recorded by a
// DryRunExecutor; host queries still run. The returned command captures
// stdout, and stderr goes to a separate buffer.
func setupCLI(t *testing.T) (*cobra.Command, *bytes.Buffer, *config.Config) {
	t.Helper()
	dir := t.TempDir()

	c := config.DefaultConfig()
	c.Catalog.Path = filepath.Join(dir, "catalog")
	c.Registry.Path = filepath.Join(dir, "state", "projects.db")
	c.Ports.ProbeDocker = false

	prevCfg, prevWorkspace, prevDryRun, prevTimeout := cfg, workspace, dryRun, timeout
	prevConfigPath := configPath
	cfg = c
	workspace = filepath.Join(dir, "work")
	dryRun = false
	timeout = time.Minute
	configPath = filepath.Join(dir, "config", "config.yaml")
	executorOverride = tactile.NewDryRunExecutor()
	resetNewFlags()
	t.Cleanup(func() {
		cfg, workspace, dryRun, timeout = prevCfg, prevWorkspace, prevDryRun, prevTimeout
		configPath = prevConfigPath
		executorOverride = nil
		resetNewFlags()
		addonsNoClobber = false
		configForce = false
	})
	require.NoError(t, os.MkdirAll(workspace, 0o755))

	cmd := &cobra.Command{}
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	return cmd, buf, c
}

// recordedCommands returns the commands the test executor saw.
func recordedCommands(t *testing.T) []string {
	t.Helper()
	e, ok := executorOverride.(*tactile.DryRunExecutor)
	require.True(t, ok)
	var out []string
	for _, c := range e.Calls() {
		out = append(out, c.CommandString())
	}
	return out
}

// newShop creates <workspace>/shop for the given Odoo version without addons.
func newShop(t *testing.T, cmd *cobra.Command, odoo string, port int) string {
	t.Helper()
	newYes = true
	newName = "shop"
	newOdoo = odoo
	newPort = port
	newNoAddons = true
	require.NoError(t, runNew(cmd, nil))
	return filepath.Join(workspace, "shop")
}

func resetNewFlags() {
	newName, newOdoo, newPort = "", "", 0
	newAddons = nil
	newNoAddons, newPull, newUp, newYes, newNoClobber, newMarkdown = false, false, false, false, false, false
	newPrompter = nil
}

func writeCatalogModule(t *testing.T, root, name string) {
	t.Helper()
	dir := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "__manifest__.py"), []byte("{'name': '"+name+"'}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "__init__.py"), nil, 0o644))
}

func TestRunVersions(t *testing.T) {
	cmd, buf, _ := setupCLI(t)

	require.NoError(t, runVersions(cmd, nil))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 7)
	assert.Equal(t, []string{"ODOO", "POSTGRES", "CATALOG", "BRANCH"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{"18", "16", "18.0"}, strings.Fields(lines[1]))
	assert.Equal(t, []string{"17", "16", "17.0"}, strings.Fields(lines[2]))
	assert.Equal(t, []string{"16", "13", "16.0"}, strings.Fields(lines[3]))
	assert.Equal(t, []string{"13", "13", "13.0"}, strings.Fields(lines[6]))
}

func TestRunPort_DryRunStillReadsSocketTable(t *testing.T) {
	if _, err := exec.LookPath("ss"); err != nil {
		t.Skip("ss not installed")
	}
	cmd, buf, _ := setupCLI(t)
	dryRun = true

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	busy := ln.Addr().(*net.TCPAddr).Port

	require.NoError(t, runPort(cmd, []string{strconv.Itoa(busy)}))
	got, err := strconv.Atoi(strings.TrimSpace(buf.String()))
	require.NoError(t, err)
	assert.Greater(t, got, busy)
}

func TestRunPort_InvalidArgument(t *testing.T) {
	cmd, _, _ := setupCLI(t)
	dryRun = true

	err := runPort(cmd, []string{"web"})
	assert.ErrorContains(t, err, "invalid start port")
}

func TestRunNew_DryRunWritesNothing(t *testing.T) {
	cmd, buf, _ := setupCLI(t)
	dryRun = true
	newYes = true
	newName = "shop"
	newOdoo = "16"
	newPort = 9168

	require.NoError(t, runNew(cmd, nil))

	out := buf.String()
	assert.Contains(t, out, "Dry run")
	assert.Contains(t, out, "image: odoo:16")
	assert.Contains(t, out, "image: postgres:13")
	assert.Contains(t, out, "http://localhost:9168")
	assert.NoDirExists(t, filepath.Join(workspace, "shop"))
}

func TestRunNew_CreatesAndRecordsProject(t *testing.T) {
	cmd, buf, c := setupCLI(t)
	newYes = true
	newName = "shop"
	newOdoo = "17"
	newPort = 9169
	newNoAddons = true

	require.NoError(t, runNew(cmd, nil))
	assert.Contains(t, buf.String(), `project "shop" created`)

	progress := cmd.ErrOrStderr().(*bytes.Buffer).String()
	assert.Contains(t, progress, "Writing project files...")
	assert.Contains(t, progress, "[100%] Project ready")
	assert.Contains(t, recordedCommands(t), "chmod -R 777 addons custom_addons data")

	root := filepath.Join(workspace, "shop")
	assert.FileExists(t, filepath.Join(root, "docker-compose.yml"))
	assert.FileExists(t, filepath.Join(root, "config", "odoo.conf"))
	assert.DirExists(t, filepath.Join(root, "custom_addons"))

	store, err := registry.Open(c.Registry.Path)
	require.NoError(t, err)
	defer store.Close()
	p, err := store.Get(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, 9169, p.Port)
	assert.Equal(t, "16", p.PostgresVersion)
}

func TestRunNew_Markdown(t *testing.T) {
	cmd, buf, _ := setupCLI(t)
	dryRun = true
	newYes = true
	newName = "docs"
	newMarkdown = true

	require.NoError(t, runNew(cmd, nil))
	assert.Contains(t, buf.String(), "docker compose up -d")
}

func TestRunAddonsAddAndProjects(t *testing.T) {
	cmd, buf, c := setupCLI(t)
	writeCatalogModule(t, c.Catalog.Path, "sale_ext")

	newYes = true
	newName = "shop"
	newOdoo = "17"
	newPort = 9170
	newNoAddons = true
	require.NoError(t, runNew(cmd, nil))
	root := filepath.Join(workspace, "shop")

	buf.Reset()
	require.NoError(t, runAddonsAdd(cmd, []string{root, "sale_ext"}))
	assert.Contains(t, buf.String(), "✓ sale_ext (atomic)")
	assert.FileExists(t, filepath.Join(root, "custom_addons", "sale_ext", "__manifest__.py"))

	buf.Reset()
	require.NoError(t, runProjectsList(cmd, nil))
	assert.Contains(t, buf.String(), "shop")
	assert.Contains(t, buf.String(), "sale_ext")
	assert.Contains(t, buf.String(), "9170")

	buf.Reset()
	require.NoError(t, runProjectsForget(cmd, []string{root}))
	buf.Reset()
	require.NoError(t, runProjectsList(cmd, nil))
	assert.Contains(t, buf.String(), "No projects recorded.")
}

func TestRunAddonsAdd_MissingEntry(t *testing.T) {
	cmd, buf, c := setupCLI(t)
	require.NoError(t, os.MkdirAll(c.Catalog.Path, 0o755))
	newYes = true
	newName = "shop"
	newPort = 9171
	newNoAddons = true
	require.NoError(t, runNew(cmd, nil))

	buf.Reset()
	err := runAddonsAdd(cmd, []string{filepath.Join(workspace, "shop"), "nope"})
	require.Error(t, err)
	assert.Contains(t, buf.String(), "✗ nope")
}

func TestRunAddonsList(t *testing.T) {
	cmd, buf, c := setupCLI(t)
	writeCatalogModule(t, c.Catalog.Path, "sale_ext")
	require.NoError(t, os.MkdirAll(filepath.Join(c.Catalog.Path, "bundle"), 0o755))
	writeCatalogModule(t, filepath.Join(c.Catalog.Path, "bundle"), "inner")

	require.NoError(t, runAddonsList(cmd, nil))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, []string{"bundle", "group"}, strings.Fields(lines[1]))
	assert.Equal(t, []string{"sale_ext", "atomic"}, strings.Fields(lines[2]))
}

func TestRunNew_RerunRewritesWithWarning(t *testing.T) {
	cmd, buf, _ := setupCLI(t)
	newShop(t, cmd, "17", 9172)

	buf.Reset()
	require.NoError(t, runNew(cmd, nil))
	assert.Contains(t, buf.String(), "Rewriting existing project")
}

func TestRunAddonsAdd_ChecksOutProjectBranch(t *testing.T) {
	cmd, buf, c := setupCLI(t)
	writeCatalogModule(t, c.Catalog.Path, "sale_ext")
	root := newShop(t, cmd, "14", 9173)

	buf.Reset()
	require.NoError(t, runAddonsAdd(cmd, []string{root, "sale_ext"}))

	assert.Contains(t, recordedCommands(t), "git checkout 14.0")
	assert.NotContains(t, recordedCommands(t), "git pull")
	assert.FileExists(t, filepath.Join(root, "custom_addons", "sale_ext", "__manifest__.py"))
}

func TestRunAddonsAdd_BranchFailureIsWarning(t *testing.T) {
	cmd, buf, c := setupCLI(t)
	writeCatalogModule(t, c.Catalog.Path, "sale_ext")
	root := newShop(t, cmd, "14", 9174)
	executorOverride.(*tactile.DryRunExecutor).StubExit("git", 1, "error: pathspec '14.0' did not match")

	buf.Reset()
	require.NoError(t, runAddonsAdd(cmd, []string{root, "sale_ext"}))
	assert.Contains(t, buf.String(), "catalog not switched to 14.0")
	assert.Contains(t, buf.String(), "✓ sale_ext")
}

func TestRunAddonsAdd_DryRunCopiesNothing(t *testing.T) {
	cmd, buf, c := setupCLI(t)
	writeCatalogModule(t, c.Catalog.Path, "sale_ext")
	root := newShop(t, cmd, "17", 9175)

	dryRun = true
	buf.Reset()
	require.NoError(t, runAddonsAdd(cmd, []string{root, "sale_ext"}))

	target := filepath.Join(root, "custom_addons", "sale_ext")
	assert.Contains(t, buf.String(), "would copy sale_ext (atomic)")
	assert.Contains(t, buf.String(), target)
	assert.NoDirExists(t, target)

	store, err := registry.Open(c.Registry.Path)
	require.NoError(t, err)
	defer store.Close()
	p, err := store.Get(context.Background(), root)
	require.NoError(t, err)
	assert.Empty(t, p.Addons)
}

func TestRunAddonsSync_DryRunCopiesNothing(t *testing.T) {
	cmd, buf, c := setupCLI(t)
	writeCatalogModule(t, c.Catalog.Path, "sale_ext")
	root := newShop(t, cmd, "17", 9176)

	dryRun = true
	buf.Reset()
	require.NoError(t, runAddonsSync(cmd, []string{root, "sale_ext"}))
	assert.Contains(t, buf.String(), "would copy sale_ext")
	assert.NoDirExists(t, filepath.Join(root, "custom_addons", "sale_ext"))
}

func TestRunConfigInit(t *testing.T) {
	cmd, buf, c := setupCLI(t)
	c.Ports.Start = 10069

	require.NoError(t, runConfigInit(cmd, nil))
	assert.Contains(t, buf.String(), "Wrote "+configPath)

	loaded, err := config.Load(configPath)
	require.NoError(t, err)
	assert.Equal(t, 10069, loaded.Ports.Start)
	assert.Equal(t, c.Catalog.Path, loaded.Catalog.Path)

	err = runConfigInit(cmd, nil)
	assert.ErrorContains(t, err, "already exists")

	configForce = true
	assert.NoError(t, runConfigInit(cmd, nil))
}

func TestRunConfigShow(t *testing.T) {
	cmd, buf, _ := setupCLI(t)

	require.NoError(t, runConfigShow(cmd, nil))
	assert.Contains(t, buf.String(), "start: 8069")
	assert.Contains(t, buf.String(), "marker: __manifest__.py")
}

func TestRunDoctor_InterruptedPrintsNothing(t *testing.T) {
	cmd, buf, _ := setupCLI(t)
	timeout = time.Nanosecond

	err := runDoctor(cmd, nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Empty(t, buf.String())
}
