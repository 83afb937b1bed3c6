package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"creditrisk/config"
	"creditrisk/credit"
	"creditrisk/ml"
)

type result struct {
	Prediction string             `json:"prediction,omitempty"`
	Confidence float64            `json:"confidence,omitempty"`
	Features   map[string]float64 `json:"features,omitempty"`
	Scaled     map[string]float64 `json:"scaled,omitempty"`
	Error      *credit.Error      `json:"error,omitempty"`
}

func main() {
	configFile := flag.String("config", "", "config file providing artifact paths")
	modelPath := flag.String("model", "", "model artifact (overrides config)")
	encoderPath := flag.String("encoder", "", "label encoder artifact (overrides config)")
	scalerPath := flag.String("scaler", "", "scaler artifact (overrides config)")
	input := flag.String("input", "-", "JSON file with one applicant or an array of applicants, - for stdin")
	explain := flag.Bool("explain", false, "print encoded and scaled features")
	flag.Parse()

	cfg, err := config.NewLoader(*configFile).Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	paths := ml.ArtifactPaths{
		ModelType: cfg.Artifacts.ModelType,
		Model:     override(*modelPath, cfg.Artifacts.Model),
		Encoder:   override(*encoderPath, cfg.Artifacts.Encoder),
		Scaler:    override(*scalerPath, cfg.Artifacts.Scaler),
	}

	bundle, err := ml.LoadBundle(paths)
	if err != nil {
		log.Fatalf("failed to load artifacts: %v", err)
	}
	predictor, err := credit.NewPredictor(bundle, credit.Options{})
	if err != nil {
		log.Fatalf("artifacts are inconsistent: %v", err)
	}

	records, err := readRecords(*input)
	if err != nil {
		log.Fatalf("failed to read input: %v", err)
	}

	enc := json.NewEncoder(os.Stdout)
	failed := 0
	for _, raw := range records {
		res := score(predictor, raw, *explain)
		if res.Error != nil {
			failed++
		}
		if err := enc.Encode(res); err != nil {
			log.Fatalf("failed to write result: %v", err)
		}
	}
	if failed > 0 {
		fmt.Fprintf(os.Stderr, "%d of %d records failed\n", failed, len(records))
		os.Exit(1)
	}
}

func score(p *credit.Predictor, raw json.RawMessage, explain bool) result {
	prediction, err := p.Predict(context.Background(), raw)
	if err != nil {
		return result{Error: credit.AsError(err)}
	}
	res := result{Prediction: prediction.Label, Confidence: prediction.Confidence}
	if !explain {
		return res
	}

	// Predict already validated the record, so these cannot fail.
	var record map[string]interface{}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&record); err != nil {
		return res
	}
	encoded, err := p.Encode(record)
	if err != nil {
		return res
	}
	scaled, err := p.Scale(encoded)
	if err != nil {
		return res
	}

	columns := credit.Columns()
	features := encoded.Vector()
	res.Features = make(map[string]float64, len(columns))
	res.Scaled = make(map[string]float64, len(columns))
	for i, column := range columns {
		res.Features[column] = features[i]
		res.Scaled[column] = scaled[i]
	}
	return res
}

func readRecords(path string) ([]json.RawMessage, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var records []json.RawMessage
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, err
		}
		return records, nil
	}
	return []json.RawMessage{trimmed}, nil
}

func override(flagValue, configValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return configValue
}
