package ml

import (
	"errors"
	"fmt"
)

// RandomForest averages the class distributions of its trees.
type RandomForest struct {
	trees   []*DecisionTree
	classes []int
}

func NewRandomForest(trees [][]TreeNode, classes []int) (*RandomForest, error) {
	if len(trees) == 0 {
		return nil, errors.New("forest has no trees")
	}
	rf := &RandomForest{
		trees:   make([]*DecisionTree, 0, len(trees)),
		classes: append([]int(nil), classes...),
	}
	for i, nodes := range trees {
		tree, err := NewDecisionTree(nodes, classes)
		if err != nil {
			return nil, fmt.Errorf("tree %d: %w", i, err)
		}
		rf.trees = append(rf.trees, tree)
	}
	return rf, nil
}

func (rf *RandomForest) Predict(features []float64) (int, float64, error) {
	avg := make([]float64, len(rf.classes))
	for _, tree := range rf.trees {
		proba, err := tree.PredictProba(features)
		if err != nil {
			return 0, 0, err
		}
		for i, p := range proba {
			avg[i] += p
		}
	}
	for i := range avg {
		avg[i] /= float64(len(rf.trees))
	}
	best := argmax(avg)
	return rf.classes[best], avg[best], nil
}

func (rf *RandomForest) Info() ModelInfo {
	required := 0
	for _, tree := range rf.trees {
		if n := tree.minFeatures(); n > required {
			required = n
		}
	}
	return ModelInfo{
		Type:        "random_forest",
		Trees:       len(rf.trees),
		Classes:     append([]int(nil), rf.classes...),
		MinFeatures: required,
	}
}
