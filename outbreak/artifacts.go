package outbreak

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// SaveArtifact persists the full model pair as one JSON document. The
// write goes through a temp file and rename so a crash never leaves a
// half-written artifact behind.
func SaveArtifact(pair *ModelPair, path string) error {
	if pair == nil {
		return ErrModelNotTrained
	}
	if err := validatePair(pair); err != nil {
		return err
	}

	data, err := json.MarshalIndent(pair, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal model artifact: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create model dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".model-*.json")
	if err != nil {
		return fmt.Errorf("create temp artifact: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write model artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close model artifact: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("install model artifact: %w", err)
	}
	return nil
}

// LoadArtifact reads a model pair back as one atomic unit. A document
// missing any of its parts is an unrecoverable configuration error, not
// something to patch over with defaults.
func LoadArtifact(path string) (*ModelPair, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model artifact: %w", err)
	}

	var pair ModelPair
	if err := json.Unmarshal(data, &pair); err != nil {
		return nil, fmt.Errorf("parse model artifact %s: %w", path, err)
	}
	if err := validatePair(&pair); err != nil {
		return nil, fmt.Errorf("model artifact %s: %w", path, err)
	}
	return &pair, nil
}

func validatePair(pair *ModelPair) error {
	dims := len(pair.FeatureCols)
	if dims == 0 {
		return fmt.Errorf("incomplete artifact: missing feature_cols")
	}
	if len(pair.Classifier.Weights) != dims {
		return fmt.Errorf("incomplete artifact: classifier has %d weights for %d feature columns",
			len(pair.Classifier.Weights), dims)
	}
	if len(pair.Regressor.Weights) != dims {
		return fmt.Errorf("incomplete artifact: regressor has %d weights for %d feature columns",
			len(pair.Regressor.Weights), dims)
	}
	if len(pair.Scaler.Mean) != dims || len(pair.Scaler.Std) != dims {
		return fmt.Errorf("incomplete artifact: scaler parameters do not match feature columns")
	}
	if pair.Areas == nil || pair.Areas.Len() == 0 {
		return fmt.Errorf("incomplete artifact: missing area encoding table")
	}
	if pair.Conditions == nil || pair.Conditions.Len() == 0 {
		return fmt.Errorf("incomplete artifact: missing condition encoding table")
	}
	return nil
}
