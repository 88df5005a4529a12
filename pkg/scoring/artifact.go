package scoring

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// ArtifactFormat tags files written by SaveArtifact.
	ArtifactFormat = "riskscore/artifact"
	// ArtifactVersion is bumped whenever the artifact layout changes.
	ArtifactVersion = 1

	artifactFileMode = 0600
	artifactDirMode  = 0700
)

// Artifact is the frozen output of a fit: everything serving needs.
type Artifact struct {
	Format   string              `json:"format" yaml:"format"`
	Version  int                 `json:"version" yaml:"version"`
	Features [NumFeatures]string `json:"features" yaml:"features"`
	Stats    Stats               `json:"stats" yaml:"stats"`
	Weights  Weights             `json:"weights" yaml:"weights"`
	Options  LogisticOptions     `json:"options" yaml:"options"`
}

// NewArtifact pairs fitted statistics and weights under the current format.
func NewArtifact(s Stats, w Weights, opts LogisticOptions) *Artifact {
	return &Artifact{
		Format:   ArtifactFormat,
		Version:  ArtifactVersion,
		Features: FeatureNames,
		Stats:    s,
		Weights:  w,
		Options:  opts,
	}
}

// Validate checks the format tag, version and feature layout.
func (a *Artifact) Validate() error {
	if a == nil {
		return fmt.Errorf("%w: nil artifact", ErrInvalidArtifact)
	}
	if a.Format != ArtifactFormat {
		return fmt.Errorf("%w: unknown format %q", ErrInvalidArtifact, a.Format)
	}
	if a.Version != ArtifactVersion {
		return fmt.Errorf("%w: unsupported version %d", ErrInvalidArtifact, a.Version)
	}
	if a.Features != FeatureNames {
		return fmt.Errorf("%w: feature layout %v does not match %v", ErrInvalidArtifact, a.Features, FeatureNames)
	}
	for i, m := range a.Stats {
		if !isFinite(m.Mean) || !isFinite(m.Std) || m.Std < 0 {
			return fmt.Errorf("%w: bad statistics for %s", ErrInvalidArtifact, FeatureNames[i])
		}
	}
	for i, c := range a.Weights.Coef {
		if !isFinite(c) {
			return fmt.Errorf("%w: bad coefficient for %s", ErrInvalidArtifact, FeatureNames[i])
		}
	}
	if !isFinite(a.Weights.Intercept) {
		return fmt.Errorf("%w: bad intercept", ErrInvalidArtifact)
	}
	return nil
}

func isYAMLPath(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// MarshalArtifact encodes a in the codec selected by the path extension.
func MarshalArtifact(path string, a *Artifact) ([]byte, error) {
	if isYAMLPath(path) {
		var buf bytes.Buffer
		e := yaml.NewEncoder(&buf)
		if err := e.Encode(a); err != nil {
			return nil, fmt.Errorf("error encoding artifact as yaml: %w", err)
		}
		if err := e.Close(); err != nil {
			return nil, fmt.Errorf("error closing yaml encoder: %w", err)
		}
		return buf.Bytes(), nil
	}

	b, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("error encoding artifact as json: %w", err)
	}
	return append(b, '\n'), nil
}

// UnmarshalArtifact decodes and validates an artifact.
func UnmarshalArtifact(path string, b []byte) (*Artifact, error) {
	var a Artifact
	if isYAMLPath(path) {
		if err := yaml.Unmarshal(b, &a); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidArtifact, err)
		}
	} else {
		if err := json.Unmarshal(b, &a); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidArtifact, err)
		}
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return &a, nil
}

// SaveArtifact writes a to path. The bytes go to a temporary file in the
// same directory which is then renamed over path, so readers never observe a
// partially written artifact.
func SaveArtifact(path string, a *Artifact) (retErr error) {
	if path == "" {
		return errors.New("artifact path required")
	}
	if err := a.Validate(); err != nil {
		return err
	}

	b, err := MarshalArtifact(path, a)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, artifactDirMode); err != nil {
		return fmt.Errorf("error creating artifact dir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("error creating temp artifact: %w", err)
	}
	defer func() {
		if retErr != nil {
			os.Remove(tmp.Name())
		}
	}()

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return fmt.Errorf("error writing temp artifact: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("error syncing temp artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("error closing temp artifact: %w", err)
	}
	if err := os.Chmod(tmp.Name(), artifactFileMode); err != nil {
		return fmt.Errorf("error setting artifact mode: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("error replacing artifact %s: %w", path, err)
	}
	return nil
}

// LoadArtifact reads and validates the artifact at path.
func LoadArtifact(path string) (*Artifact, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrArtifactNotFound, path)
		}
		return nil, fmt.Errorf("error reading artifact %s: %w", path, err)
	}
	return UnmarshalArtifact(path, b)
}
