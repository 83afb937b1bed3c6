package ml

import (
	"fmt"
	"time"
)

type ArtifactPaths struct {
	ModelType string
	Model     string
	Encoder   string
	Scaler    string
}

// Artifact describes one file a Bundle was loaded from.
type Artifact struct {
	Kind     string    `json:"kind"`
	Path     string    `json:"path"`
	SHA256   string    `json:"sha256"`
	LoadedAt time.Time `json:"loaded_at"`
}

// Bundle is the immutable set of fitted objects the service predicts with.
type Bundle struct {
	Model     Classifier
	Encoders  *EncoderSet
	Scaler    *StandardScaler
	Artifacts []Artifact
}

func LoadBundle(paths ArtifactPaths) (*Bundle, error) {
	now := time.Now().UTC()

	model, modelSum, err := LoadModel(paths.ModelType, paths.Model)
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}
	encoders, encoderSum, err := LoadEncoderSet(paths.Encoder)
	if err != nil {
		return nil, fmt.Errorf("load label encoder: %w", err)
	}
	scaler, scalerSum, err := LoadScaler(paths.Scaler)
	if err != nil {
		return nil, fmt.Errorf("load scaler: %w", err)
	}

	return &Bundle{
		Model:    model,
		Encoders: encoders,
		Scaler:   scaler,
		Artifacts: []Artifact{
			{Kind: "model", Path: paths.Model, SHA256: modelSum, LoadedAt: now},
			{Kind: "label_encoder", Path: paths.Encoder, SHA256: encoderSum, LoadedAt: now},
			{Kind: "scaler", Path: paths.Scaler, SHA256: scalerSum, LoadedAt: now},
		},
	}, nil
}
