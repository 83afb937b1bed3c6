package credit

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"creditrisk/ml"
)

var occupations = []string{
	"Accountants", "Cleaning staff", "Cooking staff", "Core staff", "Drivers",
	"HR staff", "High skill tech staff", "IT staff", "Laborers", "Managers",
	"Sales staff", "Unknown",
}

var scaledColumns = []string{
	"age", "no_of_children", "net_yearly_income", "no_of_days_employed",
	"total_family_members", "yearly_debt_payments", "credit_limit",
	"credit_limit_used(%)", "credit_score", "prev_defaults", "default_in_last_6months",
}

func testBundle(t *testing.T) *ml.Bundle {
	t.Helper()

	encoders, err := ml.NewEncoderSet(map[string][]string{
		"gender":          {"F", "M", "XNA"},
		"owns_car":        {"N", "Y"},
		"owns_house":      {"N", "Y"},
		"occupation_type": occupations,
	})
	require.NoError(t, err)

	scaler, err := ml.NewStandardScaler(scaledColumns,
		[]float64{38.9, 0.42, 200655, 67609, 2.16, 31796, 43548, 52.2, 782.8, 0.06, 0.05},
		[]float64{9.5, 0.72, 669074, 139323, 0.91, 17269, 148784, 29.4, 100.6, 0.27, 0.22},
	)
	require.NoError(t, err)

	// credit_score (13) below the mean declines; otherwise any previous
	// default (14) declines.
	tree, err := ml.NewDecisionTree([]ml.TreeNode{
		{FeatureIdx: 13, Threshold: 0, LeftChild: 1, RightChild: 2},
		{IsLeaf: true, ClassLabel: 1, Value: []float64{10, 90}},
		{FeatureIdx: 14, Threshold: 0.5, LeftChild: 3, RightChild: 4},
		{IsLeaf: true, ClassLabel: 0, Value: []float64{95, 5}},
		{IsLeaf: true, ClassLabel: 1, Value: []float64{20, 80}},
	}, []int{0, 1})
	require.NoError(t, err)

	return &ml.Bundle{Model: tree, Encoders: encoders, Scaler: scaler}
}

func validRecord() map[string]interface{} {
	return map[string]interface{}{
		"age":                     json.Number("35"),
		"gender":                  "Female",
		"owns_car":                "Yes",
		"owns_house":              "Yes",
		"no_of_children":          json.Number("0"),
		"net_yearly_income":       json.Number("50000"),
		"no_of_days_employed":     json.Number("2000"),
		"occupation_type":         "Laborers",
		"total_family_members":    json.Number("2"),
		"migrant_worker":          "No",
		"yearly_debt_payments":    json.Number("500"),
		"credit_limit":            json.Number("10000"),
		"credit_limit_used":       json.Number("20"),
		"credit_score":            json.Number("900"),
		"prev_defaults":           json.Number("0"),
		"default_in_last_6months": json.Number("0"),
	}
}

func recordJSON(t *testing.T, record map[string]interface{}) []byte {
	t.Helper()
	body, err := json.Marshal(record)
	require.NoError(t, err)
	return body
}
