package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "input.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDataset(t *testing.T) {
	path := writeTemp(t, `{
		"samples": [
			{"record": {"id": "e1", "type": "NetworkError", "message": "timeout"}, "cause": "NetworkError"},
			{"record": {"id": "e2", "type": "TypeError", "message": "undefined"}, "cause": "CodeBug"}
		]
	}`)

	d, err := loadDataset([]string{path})
	require.NoError(t, err)
	require.Len(t, d.Samples, 2)

	records, causes := d.split()
	assert.Equal(t, "e1", records[0].ID)
	assert.Equal(t, []string{"NetworkError", "CodeBug"}, causes)
}

func TestLoadDataset_Empty(t *testing.T) {
	path := writeTemp(t, `{"samples": []}`)
	_, err := loadDataset([]string{path})
	assert.Error(t, err)
}

func TestLoadDataset_Malformed(t *testing.T) {
	path := writeTemp(t, `{not json`)
	_, err := loadDataset([]string{path})
	assert.Error(t, err)
}

func TestLoadRecord(t *testing.T) {
	path := writeTemp(t, `{"id": "e1", "type": "TypeError", "message": "x is not a function", "project_id": "p1"}`)

	rec, err := loadRecord([]string{path})
	require.NoError(t, err)
	assert.Equal(t, "e1", rec.ID)
	assert.Equal(t, "p1", rec.ProjectID)
}

func TestLoadRecord_MissingFile(t *testing.T) {
	_, err := loadRecord([]string{filepath.Join(t.TempDir(), "missing.json")})
	assert.Error(t, err)
}
