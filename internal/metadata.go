// v1
// metadata.go
package internal

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ErrMetadataField is returned when the model metadata record is
// missing a field the service requires at startup.
var ErrMetadataField = errors.New("model metadata field missing")

const (
	metaCommentsKey = "driving_comments"
	metaEvalKey     = "driving_model_eval"
)

// ModelMetadata is the persisted description of a driving model:
// dataset parameters plus the operator feedback appended at shutdown.
// The record is treated as an opaque key/value structure; keys the
// service does not know about survive a load/save round trip.
type ModelMetadata struct {
	Dataset map[string]any `yaml:"dataset"`
	Model   map[string]any `yaml:"model"`
	Extra   map[string]any `yaml:",inline"`

	path string
}

// LoadModelMetadata reads models/<name>/<name>.yaml under the driving
// base directory. A missing or unreadable file is a configuration
// error: the service must not drive a model it cannot describe.
func LoadModelMetadata(baseDir, name string) (*ModelMetadata, error) {
	path := filepath.Join(baseDir, "models", name, name+".yaml")
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("model metadata %s: %w", path, err)
	}
	m := &ModelMetadata{path: path}
	if err := yaml.Unmarshal(raw, m); err != nil {
		return nil, fmt.Errorf("model metadata %s: %w", path, err)
	}
	if m.Dataset == nil {
		m.Dataset = map[string]any{}
	}
	if m.Model == nil {
		m.Model = map[string]any{}
	}
	return m, nil
}

// CruiseVelocity returns dataset.linear_velocity, the nominal forward
// speed the model was trained at.
func (m *ModelMetadata) CruiseVelocity() (float64, error) {
	v, ok := m.Dataset["linear_velocity"]
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	}
	if !ok {
		return 0, fmt.Errorf("%w: dataset.linear_velocity", ErrMetadataField)
	}
	return 0, fmt.Errorf("%w: dataset.linear_velocity is %T, want number", ErrMetadataField, v)
}

// AppendComment appends free-text operator feedback to
// model.driving_comments with the "; " separator rule.
func (m *ModelMetadata) AppendComment(comment string) {
	m.appendModelField(metaCommentsKey, comment)
}

// AppendEval appends a "<rating>/10" entry to model.driving_model_eval
// with the "; " separator rule.
func (m *ModelMetadata) AppendEval(rating string) {
	m.appendModelField(metaEvalKey, rating+"/10")
}

// appendModelField implements get-if-present/append semantics: the
// first entry is stored verbatim, later entries are joined with "; ".
// Existing content is never replaced.
func (m *ModelMetadata) appendModelField(key, value string) {
	prev, ok := m.Model[key].(string)
	if !ok || prev == "" {
		m.Model[key] = value
		return
	}
	m.Model[key] = prev + "; " + value
}

// Save writes the record back to its file via a temp file and rename,
// so a crash mid-write never leaves a truncated record behind.
func (m *ModelMetadata) Save() error {
	out, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal model metadata: %w", err)
	}
	tmp := m.path + ".tmp"
	if err := os.WriteFile(tmp, out, 0o644); err != nil {
		return fmt.Errorf("write model metadata: %w", err)
	}
	if err := os.Rename(tmp, m.path); err != nil {
		return fmt.Errorf("write model metadata: %w", err)
	}
	return nil
}
