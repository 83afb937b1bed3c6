package ml

import (
	"errors"
	"fmt"
)

type modelFile struct {
	Type    string       `json:"type" yaml:"type"`
	Classes []int        `json:"classes" yaml:"classes"`
	Trees   [][]TreeNode `json:"trees" yaml:"trees"`
}

// LoadModel reads a model artifact. modelType may be empty to accept
// whatever type the artifact declares.
func LoadModel(modelType, path string) (Classifier, string, error) {
	var file modelFile
	checksum, err := readArtifact(path, &file)
	if err != nil {
		return nil, "", err
	}
	if modelType != "" && file.Type != modelType {
		return nil, "", fmt.Errorf("model type mismatch: configured %q, artifact is %q", modelType, file.Type)
	}

	switch file.Type {
	case "decision_tree":
		if len(file.Trees) != 1 {
			return nil, "", fmt.Errorf("decision_tree needs exactly one tree, got %d", len(file.Trees))
		}
		model, err := NewDecisionTree(file.Trees[0], file.Classes)
		if err != nil {
			return nil, "", err
		}
		return model, checksum, nil
	case "random_forest":
		model, err := NewRandomForest(file.Trees, file.Classes)
		if err != nil {
			return nil, "", err
		}
		return model, checksum, nil
	default:
		return nil, "", errors.New("unsupported model type")
	}
}
