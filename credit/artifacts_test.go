package credit

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"creditrisk/ml"
)

func TestShippedArtifacts(t *testing.T) {
	dir := filepath.Join("..", "artifacts")
	bundle, err := ml.LoadBundle(ml.ArtifactPaths{
		ModelType: "random_forest",
		Model:     filepath.Join(dir, "model.json"),
		Encoder:   filepath.Join(dir, "label_encoder.yaml"),
		Scaler:    filepath.Join(dir, "scaler.json"),
	})
	require.NoError(t, err)

	p, err := NewPredictor(bundle, Options{CacheSize: 8})
	require.NoError(t, err)

	body := []byte(`{"age":35,"gender":"Female","owns_car":"Yes","owns_house":"Yes","no_of_children":0,
		"net_yearly_income":50000,"no_of_days_employed":2000,"occupation_type":"Laborers",
		"total_family_members":2,"migrant_worker":"No","yearly_debt_payments":500,"credit_limit":10000,
		"credit_limit_used":20,"credit_score":700,"prev_defaults":0,"default_in_last_6months":0}`)
	got, err := p.Predict(context.Background(), body)
	require.NoError(t, err)
	assert.Equal(t, "Yes", got.Label)

	record := validRecord()
	record["credit_score"] = "550"
	record["prev_defaults"] = "3"
	got, err = p.PredictRecord(context.Background(), record)
	require.NoError(t, err)
	assert.Equal(t, "No", got.Label)

	options := p.Options()
	assert.Len(t, options["occupation_type"], 19)
	assert.Equal(t, "Accounting & Finance", options["occupation_type"][0].Label)
}
