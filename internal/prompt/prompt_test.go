package prompt

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(m tea.Model, keys ...string) tea.Model {
	for _, k := range keys {
		m, _ = m.Update(key(k))
	}
	return m
}

func TestInputModel(t *testing.T) {
	m := press(newInputModel("Project name", "odoo", nil), "shop", "enter").(inputModel)
	assert.True(t, m.done)
	assert.Equal(t, "shop", m.value)
}

func TestInputModel_DefaultOnEmpty(t *testing.T) {
	m := press(newInputModel("Project name", "odoo", nil), "enter").(inputModel)
	assert.True(t, m.done)
	assert.Equal(t, "odoo", m.value)
}

func TestInputModel_ValidationKeepsPrompting(t *testing.T) {
	reject := func(v string) error {
		if v == "bad" {
			return errors.New("nope")
		}
		return nil
	}
	m := press(newInputModel("Name", "", reject), "bad", "enter").(inputModel)
	assert.False(t, m.done)
	require.Error(t, m.err)
	assert.Contains(t, m.View(), "nope")
}

func TestInputModel_Abort(t *testing.T) {
	m := press(newInputModel("Name", "", nil), "ctrl+c").(inputModel)
	assert.True(t, m.aborted)
	assert.False(t, m.done)
}

func TestSelectModel(t *testing.T) {
	opts := []string{"18", "17", "16"}

	m := press(newSelectModel("Version", opts, "17"), "enter").(selectModel)
	assert.Equal(t, "17", m.value())

	m = press(newSelectModel("Version", opts, ""), "down", "down", "down", "up", "enter").(selectModel)
	assert.True(t, m.done)
	assert.Equal(t, "17", m.value())

	m = press(newSelectModel("Version", opts, ""), "esc").(selectModel)
	assert.True(t, m.aborted)
}

func TestMultiSelectModel(t *testing.T) {
	opts := []string{"a", "b", "c"}

	m := press(newMultiSelectModel("Addons", opts), " ", "down", "down", " ", "enter").(multiSelectModel)
	assert.True(t, m.done)
	assert.Equal(t, []string{"a", "c"}, m.values())

	m = press(newMultiSelectModel("Addons", opts), "a", "enter").(multiSelectModel)
	assert.Equal(t, opts, m.values())

	m = press(newMultiSelectModel("Addons", opts), "a", "a", "enter").(multiSelectModel)
	assert.Empty(t, m.values())
}

func TestConfirmModel(t *testing.T) {
	m := press(newConfirmModel("Start?", false), "y").(confirmModel)
	assert.True(t, m.done)
	assert.True(t, m.value)

	m = press(newConfirmModel("Start?", true), "enter").(confirmModel)
	assert.True(t, m.value)

	m = press(newConfirmModel("Start?", true), "n").(confirmModel)
	assert.False(t, m.value)

	assert.Contains(t, newConfirmModel("Start?", true).View(), "Y/n")
}

func TestScriptedPrompter(t *testing.T) {
	ctx := context.Background()
	p := NewScriptedPrompter("shop", "", "b, a", "yes", "")

	name, err := p.Input(ctx, "name", "odoo", nil)
	require.NoError(t, err)
	assert.Equal(t, "shop", name)

	v, err := p.Select(ctx, "version", []string{"18", "17"}, "17")
	require.NoError(t, err)
	assert.Equal(t, "17", v)

	picked, err := p.MultiSelect(ctx, "addons", []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, picked)

	ok, err := p.Confirm(ctx, "pull", false)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = p.Confirm(ctx, "up", true)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = p.Input(ctx, "extra", "", nil)
	assert.ErrorIs(t, err, ErrScriptExhausted)
	assert.Equal(t, []string{"name", "version", "addons", "pull", "up", "extra"}, p.Asked())
}

func TestScriptedPrompter_Rejects(t *testing.T) {
	ctx := context.Background()

	_, err := NewScriptedPrompter("12").Select(ctx, "version", []string{"18"}, "")
	assert.Error(t, err)

	_, err = NewScriptedPrompter("zzz").MultiSelect(ctx, "addons", []string{"a"})
	assert.Error(t, err)

	_, err = NewScriptedPrompter("maybe").Confirm(ctx, "up", false)
	assert.Error(t, err)

	_, err = NewScriptedPrompter("x").Input(ctx, "name", "", func(string) error { return errors.New("bad") })
	assert.Error(t, err)
}

func TestDefaults(t *testing.T) {
	ctx := context.Background()
	p := Defaults()

	v, err := p.Select(ctx, "version", []string{"18", "17"}, "")
	require.NoError(t, err)
	assert.Equal(t, "18", v)

	all, err := NewScriptedPrompter("*").MultiSelect(ctx, "addons", []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, all)

	none, err := p.MultiSelect(ctx, "addons", []string{"a"})
	require.NoError(t, err)
	assert.Empty(t, none)

	ok, err := p.Confirm(ctx, "up", false)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestScriptedPrompter_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Defaults().Input(ctx, "name", "x", nil)
	assert.ErrorIs(t, err, context.Canceled)
}
