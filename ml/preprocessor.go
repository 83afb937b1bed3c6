package ml

import (
	"errors"
	"fmt"
	"math"
)

// StandardScaler applies z-score normalization with statistics fitted
// offline. It only knows the features it was fitted on.
type StandardScaler struct {
	featureNames []string
	mean         []float64
	scale        []float64
	index        map[string]int
}

type scalerFile struct {
	FeatureNames []string  `json:"feature_names" yaml:"feature_names"`
	Mean         []float64 `json:"mean" yaml:"mean"`
	Scale        []float64 `json:"scale" yaml:"scale"`
}

func NewStandardScaler(featureNames []string, mean, scale []float64) (*StandardScaler, error) {
	if len(featureNames) == 0 {
		return nil, errors.New("scaler has no features")
	}
	if len(mean) != len(featureNames) || len(scale) != len(featureNames) {
		return nil, fmt.Errorf("scaler size mismatch: %d features, %d means, %d scales",
			len(featureNames), len(mean), len(scale))
	}

	index := make(map[string]int, len(featureNames))
	scales := make([]float64, len(scale))
	for i, name := range featureNames {
		if _, dup := index[name]; dup {
			return nil, fmt.Errorf("duplicate scaler feature %q", name)
		}
		index[name] = i
		if !isFinite(mean[i]) || !isFinite(scale[i]) {
			return nil, fmt.Errorf("non-finite statistics for %s", name)
		}
		// a constant feature is fitted with scale 0 and left unscaled
		scales[i] = scale[i]
		if scales[i] == 0 {
			scales[i] = 1
		}
	}

	return &StandardScaler{
		featureNames: append([]string(nil), featureNames...),
		mean:         append([]float64(nil), mean...),
		scale:        scales,
		index:        index,
	}, nil
}

// LoadScaler reads a scaler artifact and returns it with the artifact checksum.
func LoadScaler(path string) (*StandardScaler, string, error) {
	var file scalerFile
	checksum, err := readArtifact(path, &file)
	if err != nil {
		return nil, "", err
	}
	scaler, err := NewStandardScaler(file.FeatureNames, file.Mean, file.Scale)
	if err != nil {
		return nil, "", err
	}
	return scaler, checksum, nil
}

func (s *StandardScaler) FeatureNames() []string {
	return append([]string(nil), s.featureNames...)
}

// Stats returns the fitted mean and scale of a feature.
func (s *StandardScaler) Stats(name string) (float64, float64, bool) {
	i, ok := s.index[name]
	if !ok {
		return 0, 0, false
	}
	return s.mean[i], s.scale[i], true
}

// Transform scales a vector laid out in FeatureNames order.
func (s *StandardScaler) Transform(values []float64) ([]float64, error) {
	if len(values) != len(s.featureNames) {
		return nil, fmt.Errorf("expected %d values, got %d", len(s.featureNames), len(values))
	}
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = (v - s.mean[i]) / s.scale[i]
	}
	return out, nil
}

func (s *StandardScaler) InverseTransform(values []float64) ([]float64, error) {
	if len(values) != len(s.featureNames) {
		return nil, fmt.Errorf("expected %d values, got %d", len(s.featureNames), len(values))
	}
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = v*s.scale[i] + s.mean[i]
	}
	return out, nil
}

// TransformColumns scales the fitted features inside a wider row whose
// layout is given by columns. Columns the scaler was not fitted on are
// copied through unchanged.
func (s *StandardScaler) TransformColumns(columns []string, row []float64) ([]float64, error) {
	return s.applyColumns(columns, row, func(v float64, i int) float64 {
		return (v - s.mean[i]) / s.scale[i]
	})
}

func (s *StandardScaler) InverseTransformColumns(columns []string, row []float64) ([]float64, error) {
	return s.applyColumns(columns, row, func(v float64, i int) float64 {
		return v*s.scale[i] + s.mean[i]
	})
}

func (s *StandardScaler) applyColumns(columns []string, row []float64, fn func(float64, int) float64) ([]float64, error) {
	if len(columns) != len(row) {
		return nil, fmt.Errorf("row has %d values for %d columns", len(row), len(columns))
	}
	positions := make(map[string]int, len(columns))
	for i, column := range columns {
		positions[column] = i
	}

	out := append([]float64(nil), row...)
	for i, name := range s.featureNames {
		pos, ok := positions[name]
		if !ok {
			return nil, fmt.Errorf("missing column %s", name)
		}
		out[pos] = fn(row[pos], i)
	}
	return out, nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
