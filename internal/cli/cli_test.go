package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/justsurfingit/job-tracker/internal/match"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestScoreCommandFallback(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	dir := t.TempDir()
	resume := writeFile(t, dir, "resume.txt", "Python and SQL developer")
	job := writeFile(t, dir, "job.md", "We need python, sql, dbt and airflow.")

	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"score", "--resume", resume, "--job", job})
	require.NoError(t, cmd.Execute())

	var got match.Assessment
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, 50, got.Score)
	assert.Equal(t, "python, sql", got.Strengths)
	assert.Equal(t, "dbt, airflow", got.Gaps)
	assert.Len(t, got.SkillBreakdown, 4)
}

func TestScoreCommandRequiresFlags(t *testing.T) {
	cmd := NewRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"score", "--resume", "x.txt"})
	assert.Error(t, cmd.Execute())
}

func TestReadDocument(t *testing.T) {
	dir := t.TempDir()

	text, err := readDocument(writeFile(t, dir, "a.txt", "  hello  \n"))
	require.NoError(t, err)
	assert.Equal(t, "hello", text)

	_, err = readDocument(writeFile(t, dir, "empty.txt", "   "))
	assert.Error(t, err)

	_, err = readDocument(filepath.Join(dir, "missing.txt"))
	assert.Error(t, err)

	_, err = readDocument(writeFile(t, dir, "broken.pdf", "not a pdf"))
	assert.Error(t, err)
}

func TestRootCommandWiring(t *testing.T) {
	cmd := NewRootCmd()
	names := map[string]bool{}
	for _, c := range cmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["serve"])
	assert.True(t, names["score"])
	assert.True(t, names["gmail-auth"])
	assert.NotNil(t, cmd.PersistentFlags().Lookup("config"))
	assert.NotNil(t, cmd.PersistentFlags().Lookup("json"))
}
