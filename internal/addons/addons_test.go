package addons

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// writeTree creates files under root; keys are slash-separated paths.
func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

// listTree returns every regular file under root as slash-separated paths.
func listTree(t *testing.T, root string) []string {
	t.Helper()
	var files []string
	require.NoError(t, filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			rel, _ := filepath.Rel(root, path)
			files = append(files, filepath.ToSlash(rel))
		}
		return nil
	}))
	sort.Strings(files)
	return files
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestClassify(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"sale_ext/__manifest__.py": "{}",
		"bundle/x/__manifest__.py": "{}",
		"README.md":                "readme",
	})
	require.NoError(t, os.MkdirAll(filepath.Join(root, "odd", DefaultMarker), 0o755))

	tests := map[string]Kind{
		"sale_ext":  KindAtomic,
		"bundle":    KindGroup,
		"README.md": KindFile,
		"odd":       KindGroup,
	}
	for name, want := range tests {
		got, err := Classify(filepath.Join(root, name), DefaultMarker)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	_, err := Classify(filepath.Join(root, "missing"), DefaultMarker)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "atomic", KindAtomic.String())
	assert.Equal(t, "group", KindGroup.String())
	assert.Equal(t, "file", KindFile.String())
}

func TestCopyTree(t *testing.T) {
	src := filepath.Join(t.TempDir(), "src")
	writeTree(t, src, map[string]string{
		"a.txt":           "alpha",
		"nested/b.txt":    "beta",
		"nested/deep/c":   "gamma",
		"nested/__init__": "",
	})
	require.NoError(t, os.Chmod(filepath.Join(src, "a.txt"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(src, "empty"), 0o755))

	dst := filepath.Join(t.TempDir(), "dst")
	require.NoError(t, CopyTree(src, dst))

	assert.Equal(t, listTree(t, src), listTree(t, dst))
	assert.Equal(t, "gamma", readFile(t, filepath.Join(dst, "nested", "deep", "c")))
	assert.DirExists(t, filepath.Join(dst, "empty"))

	info, err := os.Stat(filepath.Join(dst, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())
}

func TestCopyTree_Overwrites(t *testing.T) {
	src := filepath.Join(t.TempDir(), "src")
	writeTree(t, src, map[string]string{"f": "new"})
	dst := filepath.Join(t.TempDir(), "dst")
	writeTree(t, dst, map[string]string{"f": "old and longer", "keep": "kept"})

	require.NoError(t, CopyTree(src, dst))
	assert.Equal(t, "new", readFile(t, filepath.Join(dst, "f")))
	assert.Equal(t, "kept", readFile(t, filepath.Join(dst, "keep")))
}

func TestMaterialize_Atomic(t *testing.T) {
	catalog := t.TempDir()
	writeTree(t, catalog, map[string]string{
		"X/__manifest__.py": "{'name': 'X'}",
		"X/models/model.py": "class M: pass",
		"X/views/view.xml":  "<odoo/>",
		"X/static/.keep":    "",
		"X/sub/__init__.py": "",
	})
	dest := filepath.Join(t.TempDir(), "custom_addons")

	out, err := NewMaterializer().Materialize(filepath.Join(catalog, "X"), dest)
	require.NoError(t, err)
	assert.Equal(t, KindAtomic, out.Kind)
	assert.Equal(t, []string{filepath.Join(dest, "X")}, out.Targets)

	assert.Equal(t, listTree(t, filepath.Join(catalog, "X")), listTree(t, filepath.Join(dest, "X")))
	assert.Equal(t, "{'name': 'X'}", readFile(t, filepath.Join(dest, "X", DefaultMarker)))
}

func TestMaterialize_GroupFlattens(t *testing.T) {
	catalog := t.TempDir()
	writeTree(t, catalog, map[string]string{
		"G/A/__manifest__.py": "{}",
		"G/A/models.py":       "a",
		"G/B/f":               "f",
		"G/notes.txt":         "top-level file",
	})
	dest := t.TempDir()

	out, err := NewMaterializer().Materialize(filepath.Join(catalog, "G"), dest)
	require.NoError(t, err)
	assert.Equal(t, KindGroup, out.Kind)
	assert.Len(t, out.Targets, 3)

	// The group's own name is dropped; the nested group B is copied whole.
	assert.Equal(t, []string{
		"A/__manifest__.py",
		"A/models.py",
		"B/f",
		"notes.txt",
	}, listTree(t, dest))
	assert.NoDirExists(t, filepath.Join(dest, "G"))
}

func TestMaterialize_NestedGroupEntryFlattens(t *testing.T) {
	catalog := t.TempDir()
	writeTree(t, catalog, map[string]string{
		"G/B/f": "f",
	})
	dest := t.TempDir()

	_, err := NewMaterializer().Materialize(filepath.Join(catalog, "G", "B"), dest)
	require.NoError(t, err)
	assert.Equal(t, []string{"f"}, listTree(t, dest))
}

func TestMaterialize_MarkerBelowTopIsNotReinterpreted(t *testing.T) {
	catalog := t.TempDir()
	writeTree(t, catalog, map[string]string{
		"G/inner/deeper/__manifest__.py": "{}",
		"G/inner/deeper/x.py":            "x",
	})
	dest := t.TempDir()

	_, err := NewMaterializer().Materialize(filepath.Join(catalog, "G"), dest)
	require.NoError(t, err)
	assert.Equal(t, []string{"inner/deeper/__manifest__.py", "inner/deeper/x.py"}, listTree(t, dest))
}

func TestMaterialize_CustomMarker(t *testing.T) {
	catalog := t.TempDir()
	writeTree(t, catalog, map[string]string{"mod/__openerp__.py": "{}"})
	dest := t.TempDir()

	out, err := NewMaterializer(WithMarker("__openerp__.py")).Materialize(filepath.Join(catalog, "mod"), dest)
	require.NoError(t, err)
	assert.Equal(t, KindAtomic, out.Kind)
	assert.FileExists(t, filepath.Join(dest, "mod", "__openerp__.py"))
}

func TestMaterialize_NoClobber(t *testing.T) {
	catalog := t.TempDir()
	writeTree(t, catalog, map[string]string{
		"G/A/__manifest__.py": "{}",
		"G/B/f":               "new",
	})
	dest := t.TempDir()
	writeTree(t, dest, map[string]string{"B/f": "old"})

	_, err := NewMaterializer(WithNoClobber(true)).Materialize(filepath.Join(catalog, "G"), dest)
	require.ErrorIs(t, err, ErrDestinationExists)
	assert.Equal(t, "old", readFile(t, filepath.Join(dest, "B", "f")))
	assert.NoDirExists(t, filepath.Join(dest, "A"))

	_, err = NewMaterializer().Materialize(filepath.Join(catalog, "G"), dest)
	require.NoError(t, err)
	assert.Equal(t, "new", readFile(t, filepath.Join(dest, "B", "f")))
}

func TestMaterialize_MissingSourceStillCreatesDestination(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "custom_addons")

	_, err := NewMaterializer().Materialize(filepath.Join(t.TempDir(), "absent"), dest)
	require.ErrorIs(t, err, os.ErrNotExist)
	assert.DirExists(t, dest)
}

func TestPlan_WritesNothing(t *testing.T) {
	catalog := t.TempDir()
	writeTree(t, catalog, map[string]string{
		"X/__manifest__.py":          "{}",
		"bundle/one/__manifest__.py": "{}",
		"bundle/two/__manifest__.py": "{}",
	})
	dest := filepath.Join(t.TempDir(), "custom_addons")
	m := NewMaterializer()

	out, err := m.Plan(filepath.Join(catalog, "bundle"), dest)
	require.NoError(t, err)
	assert.Equal(t, KindGroup, out.Kind)
	assert.Equal(t, []string{filepath.Join(dest, "one"), filepath.Join(dest, "two")}, out.Targets)

	report := m.PlanAll(context.Background(), catalog, []string{"X", "missing"}, dest)
	assert.Equal(t, []string{"X"}, report.Succeeded())
	assert.Equal(t, []string{filepath.Join(dest, "X")}, report.Results[0].Outcome.Targets)
	require.Len(t, report.Failed(), 1)

	assert.NoDirExists(t, dest)
}

func TestPlan_NoClobberReportsConflict(t *testing.T) {
	catalog := t.TempDir()
	writeTree(t, catalog, map[string]string{"X/__manifest__.py": "{}"})
	dest := t.TempDir()
	writeTree(t, dest, map[string]string{"X/old.py": "old"})

	_, err := NewMaterializer(WithNoClobber(true)).Plan(filepath.Join(catalog, "X"), dest)
	assert.ErrorIs(t, err, ErrDestinationExists)
}

func TestMaterializeAll(t *testing.T) {
	catalog := t.TempDir()
	writeTree(t, catalog, map[string]string{
		"first/__manifest__.py":      "{}",
		"bundle/one/__manifest__.py": "{}",
		"bundle/two/__manifest__.py": "{}",
	})
	dest := t.TempDir()

	report := NewMaterializer().MaterializeAll(context.Background(), catalog,
		[]string{"first", "missing", "../escape", "bundle"}, dest)

	require.Len(t, report.Results, 4)
	assert.Equal(t, []string{"first", "bundle"}, report.Succeeded())

	failed := report.Failed()
	require.Len(t, failed, 2)
	assert.Equal(t, "missing", failed[0].Name)
	assert.ErrorIs(t, failed[0].Err, os.ErrNotExist)
	assert.ErrorIs(t, failed[1].Err, ErrInvalidEntry)

	err := report.Err()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidEntry)
	assert.True(t, strings.Contains(err.Error(), "missing: "))

	assert.DirExists(t, filepath.Join(dest, "first"))
	assert.DirExists(t, filepath.Join(dest, "one"))
	assert.DirExists(t, filepath.Join(dest, "two"))
}

func TestMaterializeAll_Canceled(t *testing.T) {
	catalog := t.TempDir()
	writeTree(t, catalog, map[string]string{"first/__manifest__.py": "{}"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report := NewMaterializer().MaterializeAll(ctx, catalog, []string{"first"}, t.TempDir())
	assert.ErrorIs(t, report.Err(), context.Canceled)
	assert.Empty(t, report.Succeeded())
}

func TestReport_NoErrors(t *testing.T) {
	r := &Report{Results: []EntryResult{{Name: "a"}}}
	assert.NoError(t, r.Err())
	assert.Empty(t, r.Failed())
}

func TestWatcher_ResyncsChangedEntry(t *testing.T) {
	defer goleak.VerifyNone(t)

	catalog := t.TempDir()
	writeTree(t, catalog, map[string]string{
		"mod/__manifest__.py":   "{}",
		"mod/models.py":         "v1",
		"other/__manifest__.py": "{}",
	})
	dest := t.TempDir()

	var mu sync.Mutex
	var synced []string
	w, err := NewWatcher(NewMaterializer(), catalog, []string{"mod"}, dest, func(entry string, _ *Outcome, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err == nil {
			synced = append(synced, entry)
		}
	})
	require.NoError(t, err)
	w.SetDebounce(50 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))

	require.NoError(t, os.WriteFile(filepath.Join(catalog, "mod", "models.py"), []byte("v2"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(catalog, "other", "ignored.py"), []byte("x"), 0o644))

	require.Eventually(t, func() bool {
		data, err := os.ReadFile(filepath.Join(dest, "mod", "models.py"))
		return err == nil && string(data) == "v2"
	}, 5*time.Second, 20*time.Millisecond)

	w.Stop()

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, synced, "mod")
	assert.NotContains(t, synced, "other")
	assert.NoDirExists(t, filepath.Join(dest, "other"))
}

func TestWatcher_NoWatchableEntries(t *testing.T) {
	defer goleak.VerifyNone(t)

	w, err := NewWatcher(NewMaterializer(), t.TempDir(), []string{"missing"}, t.TempDir(), nil)
	require.NoError(t, err)
	assert.Error(t, w.Start(context.Background()))
	w.Stop()
}
