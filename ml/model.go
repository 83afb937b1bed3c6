package ml

// Classifier is a fitted model that maps a feature vector to a class label.
type Classifier interface {
	Predict(features []float64) (int, float64, error)
	Info() ModelInfo
}

type ModelInfo struct {
	Type    string `json:"type"`
	Trees   int    `json:"trees"`
	Classes []int  `json:"classes"`
	// MinFeatures is the shortest vector the model can be evaluated on.
	MinFeatures int `json:"min_features"`
}
