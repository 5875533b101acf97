package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileSourceProducesRunnableProgram(t *testing.T) {
	p, err := compileSource(`
		fn main(a: field, b: field) -> field {
			a + b
		}
	`)
	require.NoError(t, err)
	assert.NotEmpty(t, p.Code)
}

func TestCompileSourceReportsSemanticError(t *testing.T) {
	_, err := compileSource(`
		fn main() -> field {
			undefined_identifier
		}
	`)
	assert.Error(t, err)
}

func TestWriteContainerThenLoadContainerRoundTrips(t *testing.T) {
	p, err := compileSource(`
		fn main(a: field) -> field {
			a
		}
	`)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "program.znb")
	require.NoError(t, writeContainer(path, p))

	loaded, err := loadContainer(path)
	require.NoError(t, err)
	assert.Equal(t, p, loaded)
}

func TestLoadContainerReportsMissingFile(t *testing.T) {
	_, err := loadContainer(filepath.Join(t.TempDir(), "missing.znb"))
	assert.Error(t, err)
}

func TestLoadContainerRejectsGarbageData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.znb")
	require.NoError(t, os.WriteFile(path, []byte("not a container"), 0o644))

	_, err := loadContainer(path)
	assert.Error(t, err)
}
