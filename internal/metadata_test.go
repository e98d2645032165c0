// v1
// metadata_test.go
package internal

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestMetadata(t *testing.T, body string) (dir, name string) {
	t.Helper()
	dir = t.TempDir()
	name = "cnn-v2"
	modelDir := filepath.Join(dir, "models", name)
	require.NoError(t, os.MkdirAll(modelDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(modelDir, name+".yaml"), []byte(body), 0o644))
	return dir, name
}

const testMetadataYAML = `dataset:
  linear_velocity: 0.8
  environment: gazebo
model:
  name: cnn-v2
epochs: 120
`

func TestLoadModelMetadataCruiseVelocity(t *testing.T) {
	dir, name := writeTestMetadata(t, testMetadataYAML)

	m, err := LoadModelMetadata(dir, name)
	require.NoError(t, err)

	v, err := m.CruiseVelocity()
	require.NoError(t, err)
	assert.Equal(t, 0.8, v)
}

func TestLoadModelMetadataMissingFile(t *testing.T) {
	_, err := LoadModelMetadata(t.TempDir(), "nope")
	require.Error(t, err)
}

func TestCruiseVelocityMissingField(t *testing.T) {
	dir, name := writeTestMetadata(t, "dataset:\n  environment: gazebo\nmodel: {}\n")

	m, err := LoadModelMetadata(dir, name)
	require.NoError(t, err)

	_, err = m.CruiseVelocity()
	require.ErrorIs(t, err, ErrMetadataField)
}

func TestCruiseVelocityWrongType(t *testing.T) {
	dir, name := writeTestMetadata(t, "dataset:\n  linear_velocity: fast\nmodel: {}\n")

	m, err := LoadModelMetadata(dir, name)
	require.NoError(t, err)

	_, err = m.CruiseVelocity()
	require.ErrorIs(t, err, ErrMetadataField)
}

func TestAppendCommentFirstEntryVerbatim(t *testing.T) {
	dir, name := writeTestMetadata(t, testMetadataYAML)
	m, err := LoadModelMetadata(dir, name)
	require.NoError(t, err)

	m.AppendComment("A")

	assert.Equal(t, "A", m.Model["driving_comments"], "no leading separator on first entry")
}

func TestAppendCommentJoinsWithSeparator(t *testing.T) {
	dir, name := writeTestMetadata(t, testMetadataYAML)
	m, err := LoadModelMetadata(dir, name)
	require.NoError(t, err)

	m.AppendComment("A")
	m.AppendComment("B")

	assert.Equal(t, "A; B", m.Model["driving_comments"])
}

func TestAppendEvalFormatsRating(t *testing.T) {
	dir, name := writeTestMetadata(t, testMetadataYAML)
	m, err := LoadModelMetadata(dir, name)
	require.NoError(t, err)

	m.AppendEval("7")
	m.AppendEval("9")

	assert.Equal(t, "7/10; 9/10", m.Model["driving_model_eval"])
}

func TestSaveRoundTripPreservesUnknownKeys(t *testing.T) {
	dir, name := writeTestMetadata(t, testMetadataYAML)
	m, err := LoadModelMetadata(dir, name)
	require.NoError(t, err)

	m.AppendComment("kept lane well")
	m.AppendEval("8")
	require.NoError(t, m.Save())

	again, err := LoadModelMetadata(dir, name)
	require.NoError(t, err)
	assert.Equal(t, "kept lane well", again.Model["driving_comments"])
	assert.Equal(t, "8/10", again.Model["driving_model_eval"])
	assert.Equal(t, "cnn-v2", again.Model["name"], "existing model keys survive")
	assert.Equal(t, "gazebo", again.Dataset["environment"])
	assert.Equal(t, 120, again.Extra["epochs"], "top-level keys the service ignores survive")

	v, err := again.CruiseVelocity()
	require.NoError(t, err)
	assert.Equal(t, 0.8, v)
}

func TestSaveFailsWhenDirectoryGone(t *testing.T) {
	dir, name := writeTestMetadata(t, testMetadataYAML)
	m, err := LoadModelMetadata(dir, name)
	require.NoError(t, err)

	require.NoError(t, os.RemoveAll(filepath.Join(dir, "models")))

	require.Error(t, m.Save())
}
