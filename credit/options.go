package credit

import (
	"sort"

	"creditrisk/ml"
)

// occupationCatalog gives the encoder classes friendlier display names.
var occupationCatalog = map[string]string{
	"Accountants":           "Accounting & Finance",
	"Cleaning staff":        "Cleaning & Maintenance",
	"Cooking staff":         "Food & Hospitality",
	"Core staff":            "General Administration & Support",
	"Drivers":               "Transportation & Delivery",
	"HR staff":              "Human Resources (HR) & Recruitment",
	"High skill tech staff": "Skilled Trades & Technical Services",
	"IT staff":              "Information Technology (IT) & Software",
	"Laborers":              "General Labor & Manufacturing",
}

// Option is one accepted value of a categorical field.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Options lists, per request key, the values the loaded artifacts accept.
func (p *Predictor) Options() map[string][]Option {
	out := make(map[string][]Option)
	for _, f := range fields {
		switch f.Kind {
		case Flag:
			out[f.Key] = []Option{{Value: "Yes", Label: "Yes"}, {Value: "No", Label: "No"}}
		case Categorical:
			out[f.Key] = p.categoryOptions(f)
		}
	}
	return out
}

func (p *Predictor) categoryOptions(f Field) []Option {
	encoder, ok := p.bundle.Encoders.Encoder(f.Column)
	if !ok {
		return nil
	}

	var options []Option
	if len(f.Choices) > 0 {
		humans := make([]string, 0, len(f.Choices))
		for human := range f.Choices {
			humans = append(humans, human)
		}
		sort.Strings(humans)
		for _, human := range humans {
			if encoder.Has(f.Choices[human]) {
				options = append(options, Option{Value: human, Label: human})
			}
		}
		return options
	}

	for _, class := range encoder.Classes() {
		label, ok := occupationCatalog[class]
		if !ok {
			label = class
		}
		options = append(options, Option{Value: class, Label: label})
	}
	return options
}

// ModelSummary describes the loaded artifacts.
type ModelSummary struct {
	Model         ml.ModelInfo        `json:"model"`
	Columns       []string            `json:"columns"`
	ScaledColumns []string            `json:"scaled_columns"`
	Encoders      map[string][]string `json:"encoders"`
	Artifacts     []ml.Artifact       `json:"artifacts"`
}

func (p *Predictor) Summary() ModelSummary {
	encoders := make(map[string][]string)
	for _, field := range p.bundle.Encoders.Fields() {
		if encoder, ok := p.bundle.Encoders.Encoder(field); ok {
			encoders[field] = encoder.Classes()
		}
	}
	return ModelSummary{
		Model:         p.bundle.Model.Info(),
		Columns:       Columns(),
		ScaledColumns: p.bundle.Scaler.FeatureNames(),
		Encoders:      encoders,
		Artifacts:     append([]ml.Artifact(nil), p.bundle.Artifacts...),
	}
}
