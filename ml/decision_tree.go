package ml

import (
	"errors"
	"fmt"
)

type DecisionTree struct {
	nodes   []TreeNode
	classes []int
}

// TreeNode is one node of a flattened tree. Children always sit after their
// parent, so evaluation cannot loop.
type TreeNode struct {
	FeatureIdx int       `json:"feature_idx" yaml:"feature_idx"`
	Threshold  float64   `json:"threshold" yaml:"threshold"`
	LeftChild  int       `json:"left_child" yaml:"left_child"`
	RightChild int       `json:"right_child" yaml:"right_child"`
	ClassLabel int       `json:"class_label" yaml:"class_label"`
	IsLeaf     bool      `json:"is_leaf" yaml:"is_leaf"`
	Value      []float64 `json:"value,omitempty" yaml:"value,omitempty"`
}

func NewDecisionTree(nodes []TreeNode, classes []int) (*DecisionTree, error) {
	if len(nodes) == 0 {
		return nil, errors.New("tree has no nodes")
	}
	if len(classes) == 0 {
		return nil, errors.New("tree has no classes")
	}
	seen := make(map[int]bool, len(classes))
	for _, class := range classes {
		if seen[class] {
			return nil, fmt.Errorf("duplicate class %d", class)
		}
		seen[class] = true
	}
	dt := &DecisionTree{
		nodes:   append([]TreeNode(nil), nodes...),
		classes: append([]int(nil), classes...),
	}
	if err := dt.validate(); err != nil {
		return nil, err
	}
	return dt, nil
}

func (dt *DecisionTree) validate() error {
	for i, node := range dt.nodes {
		if node.IsLeaf {
			if len(node.Value) > 0 {
				if len(node.Value) != len(dt.classes) {
					return fmt.Errorf("node %d: value has %d entries for %d classes", i, len(node.Value), len(dt.classes))
				}
				if sum(node.Value) <= 0 {
					return fmt.Errorf("node %d: value sums to zero", i)
				}
				continue
			}
			if dt.classIndex(node.ClassLabel) < 0 {
				return fmt.Errorf("node %d: unknown class %d", i, node.ClassLabel)
			}
			continue
		}
		if node.FeatureIdx < 0 {
			return fmt.Errorf("node %d: negative feature index", i)
		}
		for _, child := range []int{node.LeftChild, node.RightChild} {
			if child <= i || child >= len(dt.nodes) {
				return fmt.Errorf("node %d: invalid child %d", i, child)
			}
		}
	}
	return nil
}

func (dt *DecisionTree) Predict(features []float64) (int, float64, error) {
	proba, err := dt.PredictProba(features)
	if err != nil {
		return 0, 0, err
	}
	best := argmax(proba)
	return dt.classes[best], proba[best], nil
}

// PredictProba returns the class distribution of the leaf reached by
// features, ordered like Info().Classes.
func (dt *DecisionTree) PredictProba(features []float64) ([]float64, error) {
	if len(dt.nodes) == 0 {
		return nil, errors.New("model not loaded")
	}
	idx := 0
	for {
		node := dt.nodes[idx]
		if node.IsLeaf {
			return dt.leafProba(node), nil
		}
		if node.FeatureIdx >= len(features) {
			return nil, errors.New("feature index out of range")
		}
		if features[node.FeatureIdx] <= node.Threshold {
			idx = node.LeftChild
		} else {
			idx = node.RightChild
		}
	}
}

func (dt *DecisionTree) Info() ModelInfo {
	return ModelInfo{
		Type:        "decision_tree",
		Trees:       1,
		Classes:     append([]int(nil), dt.classes...),
		MinFeatures: dt.minFeatures(),
	}
}

func (dt *DecisionTree) minFeatures() int {
	n := 0
	for _, node := range dt.nodes {
		if !node.IsLeaf && node.FeatureIdx+1 > n {
			n = node.FeatureIdx + 1
		}
	}
	return n
}

func (dt *DecisionTree) leafProba(node TreeNode) []float64 {
	proba := make([]float64, len(dt.classes))
	if len(node.Value) > 0 {
		total := sum(node.Value)
		for i, v := range node.Value {
			proba[i] = v / total
		}
		return proba
	}
	proba[dt.classIndex(node.ClassLabel)] = 1
	return proba
}

func (dt *DecisionTree) classIndex(label int) int {
	for i, class := range dt.classes {
		if class == label {
			return i
		}
	}
	return -1
}

func sum(values []float64) float64 {
	total := 0.0
	for _, v := range values {
		total += v
	}
	return total
}

// argmax returns the first index holding the largest value.
func argmax(values []float64) int {
	best := 0
	for i, v := range values {
		if v > values[best] {
			best = i
		}
	}
	return best
}
