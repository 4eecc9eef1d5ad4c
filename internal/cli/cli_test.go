package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) string {
	t.Helper()

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", ""}, args...))

	require.NoError(t, cmd.Execute(), out.String())
	return out.String()
}

func TestCommands(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("SQLITE_PATH", filepath.Join(dir, "quiz.db"))
	t.Setenv("LOG_LEVEL", "error")

	run(t, "migrate")
	assert.Contains(t, run(t, "seed"), "Seeded 5 quizzes.")
	assert.Contains(t, run(t, "cleanup"), "Removed 0 quizzes, 0 questions, 0 options. Reset 0 correct flags.")

	fixture := filepath.Join(dir, "fixture.yaml")
	require.NoError(t, os.WriteFile(fixture, []byte(`
quizzes:
  - name: Tiny
    questions:
      - text: Pick one
        options: [{text: a, correct: true}, {text: b}, {text: c}, {text: d}]
leaderboard:
  - {name: ann, category: Tiny, score: 1, time: 30}
  - {name: bob, category: Tiny, score: 1, time: 10}
`), 0o600))
	assert.Contains(t, run(t, "seed", "--file", fixture), "Seeded 1 quizzes.")

	local := filepath.Join(dir, "cache.json")
	require.NoError(t, os.WriteFile(local, []byte(`[
  {"name":"ann","category":"Tiny","score":1,"time":30},
  {"name":"cid","category":"Tiny","score":2,"time":50},
  {"name":"","category":"Tiny","score":9,"time":1},
  {"name":"dan","category":"Tiny","score":1.5,"time":1}
]`), 0o600))

	out := run(t, "leaderboard", "--local", local)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4, out)
	assert.Contains(t, lines[1], "cid")
	assert.Contains(t, lines[2], "bob")
	assert.Contains(t, lines[3], "ann")
}

func TestReadLocal_NotAnArray(t *testing.T) {
	p := filepath.Join(t.TempDir(), "cache.json")
	require.NoError(t, os.WriteFile(p, []byte(`{"name":"ann"}`), 0o600))

	_, err := readLocal(p)
	assert.Error(t, err)
}
