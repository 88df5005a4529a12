package scoring

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fittedArtifact(t *testing.T) *Artifact {
	t.Helper()
	a, _, err := Fit(syntheticRecords(t, 800), FitOptions{})
	require.NoError(t, err)
	return a
}

func TestArtifact_RoundTrip(t *testing.T) {
	a := fittedArtifact(t)

	for _, name := range []string{"model.json", "model.yaml", "model.yml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			require.NoError(t, SaveArtifact(path, a))

			got, err := LoadArtifact(path)
			require.NoError(t, err)

			// weights must survive bit for bit
			assert.Equal(t, a.Weights, got.Weights)
			for i := range a.Stats {
				assert.InDelta(t, a.Stats[i].Mean, got.Stats[i].Mean, 1e-12)
				assert.InDelta(t, a.Stats[i].Std, got.Stats[i].Std, 1e-12)
			}
			if diff := cmp.Diff(a, got); diff != "" {
				t.Errorf("artifact mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSaveArtifact_ReplacesWholeFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "model.json")

	first := testArtifact()
	require.NoError(t, SaveArtifact(path, first))

	second := fittedArtifact(t)
	require.NoError(t, SaveArtifact(path, second))

	got, err := LoadArtifact(path)
	require.NoError(t, err)
	assert.Equal(t, second.Weights, got.Weights)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestSaveArtifact_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")

	assert.Error(t, SaveArtifact("", testArtifact()))

	a := testArtifact()
	a.Version = 99
	assert.ErrorIs(t, SaveArtifact(path, a), ErrInvalidArtifact)

	_, err := os.Stat(path)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadArtifact_NotFound(t *testing.T) {
	_, err := LoadArtifact(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorIs(t, err, ErrArtifactNotFound)
}

func TestLoadArtifact_Malformed(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"not json", "a.json", "{not json"},
		{"wrong format", "b.json", `{"format":"other","version":1}`},
		{"wrong version", "c.yaml", "format: riskscore/artifact\nversion: 2\n"},
		{"wrong features", "d.json", `{"format":"riskscore/artifact","version":1,"features":["a","b","c","d","e"]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.file)
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0600))
			_, err := LoadArtifact(path)
			assert.ErrorIs(t, err, ErrInvalidArtifact)
		})
	}
}

func TestArtifact_Validate(t *testing.T) {
	a := testArtifact()
	require.NoError(t, a.Validate())

	a.Stats[Age].Std = -1
	assert.ErrorIs(t, a.Validate(), ErrInvalidArtifact)

	var nilArtifact *Artifact
	assert.ErrorIs(t, nilArtifact.Validate(), ErrInvalidArtifact)
}
