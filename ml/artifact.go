package ml

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v2"
)

// readArtifact decodes a JSON or YAML artifact into out, chosen by file
// extension, and returns the SHA-256 of the raw file contents.
func readArtifact(path string, out interface{}) (string, error) {
	if path == "" {
		return "", fmt.Errorf("artifact path is empty")
	}
	payload, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	if len(bytes.TrimSpace(payload)) == 0 {
		return "", fmt.Errorf("artifact %s is empty", path)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.UnmarshalStrict(payload, out); err != nil {
			return "", fmt.Errorf("decode %s: %w", path, err)
		}
	case ".json", "":
		dec := json.NewDecoder(bytes.NewReader(payload))
		dec.DisallowUnknownFields()
		if err := dec.Decode(out); err != nil {
			return "", fmt.Errorf("decode %s: %w", path, err)
		}
	default:
		return "", fmt.Errorf("unsupported artifact format %q", filepath.Ext(path))
	}

	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:]), nil
}
