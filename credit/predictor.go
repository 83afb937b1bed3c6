package credit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"creditrisk/logger"
	"creditrisk/ml"
)

const (
	LabelApproved = "Yes"
	LabelDeclined = "No"
)

// Recorder receives per-stage timings and outcomes.
type Recorder interface {
	ObserveStage(ctx context.Context, stage string, d time.Duration)
	PredictionServed(label string, cached bool)
	PredictionFailed(code string)
}

// OutcomeRecorder persists aggregate outcome counts.
type OutcomeRecorder interface {
	RecordOutcome(ctx context.Context, label string) error
}

type Options struct {
	// CacheSize bounds the prediction cache; zero or negative disables it.
	CacheSize int
	Logger    logger.Logger
	Recorder  Recorder
	Outcomes  OutcomeRecorder
}

// Prediction is the result returned to callers. Only Label is serialized.
type Prediction struct {
	Label      string  `json:"prediction"`
	Class      int     `json:"-"`
	Confidence float64 `json:"-"`
	Cached     bool    `json:"-"`
}

type classified struct {
	class      int
	confidence float64
}

// Predictor turns raw applicant records into a Yes/No decision. It is safe
// for concurrent use; the bundle is never mutated after construction.
type Predictor struct {
	bundle   *ml.Bundle
	columns  []string
	schema   *requestSchema
	cache    *lru.Cache[string, classified]
	log      logger.Logger
	recorder Recorder
	outcomes OutcomeRecorder
}

func NewPredictor(bundle *ml.Bundle, opts Options) (*Predictor, error) {
	if bundle == nil || bundle.Model == nil || bundle.Encoders == nil || bundle.Scaler == nil {
		return nil, NewModelUnavailableError(errors.New("artifact bundle is incomplete"))
	}
	if err := checkBundle(bundle); err != nil {
		return nil, NewModelUnavailableError(err)
	}

	schema, err := newRequestSchema()
	if err != nil {
		return nil, err
	}

	p := &Predictor{
		bundle:   bundle,
		columns:  Columns(),
		schema:   schema,
		log:      opts.Logger,
		recorder: opts.Recorder,
		outcomes: opts.Outcomes,
	}
	if p.log == nil {
		p.log = logger.NewNopLogger()
	}
	if p.recorder == nil {
		p.recorder = nopRecorder{}
	}

	if opts.CacheSize > 0 {
		cache, err := lru.New[string, classified](opts.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("prediction cache: %w", err)
		}
		p.cache = cache
	}
	return p, nil
}

// checkBundle verifies the artifacts agree with the record layout.
func checkBundle(bundle *ml.Bundle) error {
	for _, column := range CategoricalColumns() {
		if _, ok := bundle.Encoders.Encoder(column); !ok {
			return fmt.Errorf("label encoder has no classes for %q", column)
		}
	}

	known := make(map[string]bool, len(fields))
	for _, column := range Columns() {
		known[column] = true
	}
	for _, name := range bundle.Scaler.FeatureNames() {
		if !known[name] {
			return fmt.Errorf("scaler feature %q is not a record column", name)
		}
	}

	info := bundle.Model.Info()
	if info.MinFeatures > len(fields) {
		return fmt.Errorf("model needs %d features, record has %d", info.MinFeatures, len(fields))
	}
	for _, class := range info.Classes {
		if class != 0 && class != 1 {
			return fmt.Errorf("model class %d is not binary", class)
		}
	}
	return nil
}

// Predict decodes a JSON request body and scores it.
func (p *Predictor) Predict(ctx context.Context, body []byte) (Prediction, error) {
	start := time.Now()
	record, err := decodeRecord(body)
	p.recorder.ObserveStage(ctx, "decode", time.Since(start))
	if err != nil {
		return Prediction{}, p.fail(err)
	}
	return p.PredictRecord(ctx, record)
}

// PredictRecord scores an already-decoded record.
func (p *Predictor) PredictRecord(ctx context.Context, record map[string]interface{}) (Prediction, error) {
	encoded, err := p.encode(ctx, record)
	if err != nil {
		return Prediction{}, p.fail(err)
	}

	start := time.Now()
	scaled, err := p.Scale(encoded)
	p.recorder.ObserveStage(ctx, "scale", time.Since(start))
	if err != nil {
		return Prediction{}, p.fail(err)
	}

	key := vectorKey(scaled)
	if p.cache != nil {
		if hit, ok := p.cache.Get(key); ok {
			return p.served(ctx, hit, true)
		}
	}

	start = time.Now()
	class, confidence, err := p.bundle.Model.Predict(scaled)
	p.recorder.ObserveStage(ctx, "classify", time.Since(start))
	if err != nil {
		return Prediction{}, p.fail(NewPredictionFailedError(err))
	}

	result := classified{class: class, confidence: confidence}
	if p.cache != nil {
		p.cache.Add(key, result)
	}
	return p.served(ctx, result, false)
}

// Encode validates, translates and label-encodes a decoded record.
func (p *Predictor) Encode(record map[string]interface{}) (*EncodedRecord, error) {
	return p.encode(context.Background(), record)
}

func (p *Predictor) encode(ctx context.Context, record map[string]interface{}) (*EncodedRecord, error) {
	if len(record) == 0 {
		return nil, NewMalformedRequestError(errors.New("empty request object"))
	}

	start := time.Now()
	err := p.schema.Check(record)
	p.recorder.ObserveStage(ctx, "validate", time.Since(start))
	if err != nil {
		return nil, err
	}

	start = time.Now()
	applicant, err := ParseApplicant(record)
	p.recorder.ObserveStage(ctx, "parse", time.Since(start))
	if err != nil {
		return nil, err
	}

	start = time.Now()
	encoded, err := applicant.Encode(p.bundle.Encoders)
	p.recorder.ObserveStage(ctx, "encode", time.Since(start))
	return encoded, err
}

// Scale returns the feature vector with the fitted columns standardized.
func (p *Predictor) Scale(record *EncodedRecord) ([]float64, error) {
	scaled, err := p.bundle.Scaler.TransformColumns(p.columns, record.Vector())
	if err != nil {
		return nil, NewModelUnavailableError(err)
	}
	return scaled, nil
}

func (p *Predictor) Bundle() *ml.Bundle {
	return p.bundle
}

func (p *Predictor) served(ctx context.Context, result classified, cached bool) (Prediction, error) {
	label, err := LabelFor(result.class)
	if err != nil {
		return Prediction{}, p.fail(err)
	}

	p.recorder.PredictionServed(label, cached)
	if p.outcomes != nil {
		if err := p.outcomes.RecordOutcome(ctx, label); err != nil {
			p.log.WithError(err).Warn("Failed to record prediction outcome", map[string]interface{}{
				"label": label,
			})
		}
	}
	p.log.Debug("Prediction served", map[string]interface{}{
		"label":      label,
		"confidence": result.confidence,
		"cached":     cached,
	})

	return Prediction{
		Label:      label,
		Class:      result.class,
		Confidence: result.confidence,
		Cached:     cached,
	}, nil
}

func (p *Predictor) fail(err error) error {
	e := AsError(err)
	p.recorder.PredictionFailed(string(e.Code))

	logFields := map[string]interface{}{"code": e.Code}
	if e.Field != "" {
		logFields["field"] = e.Field
	}
	if e.HTTPStatus() >= 500 {
		p.log.WithError(err).Error("Prediction failed", logFields)
	} else {
		p.log.Debug("Prediction rejected", logFields)
	}
	return e
}

// LabelFor maps a model class to the response label: 1 is a predicted
// default and is reported as "No".
func LabelFor(class int) (string, error) {
	switch class {
	case 1:
		return LabelDeclined, nil
	case 0:
		return LabelApproved, nil
	default:
		return "", NewPredictionFailedError(fmt.Errorf("unexpected model output %d", class))
	}
}

// decodeRecord requires exactly one JSON object in body. Numbers are kept as
// json.Number so integer columns are not rounded through float64.
func decodeRecord(body []byte) (map[string]interface{}, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, NewMalformedRequestError(errors.New("empty body"))
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var value interface{}
	if err := dec.Decode(&value); err != nil {
		return nil, NewMalformedRequestError(err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, NewMalformedRequestError(errors.New("unexpected data after JSON object"))
	}

	record, ok := value.(map[string]interface{})
	if !ok {
		return nil, NewMalformedRequestError(fmt.Errorf("expected a JSON object, got %T", value))
	}
	if len(record) == 0 {
		return nil, NewMalformedRequestError(errors.New("empty request object"))
	}
	return record, nil
}

func vectorKey(vector []float64) string {
	buf := make([]byte, 0, len(vector)*17)
	for _, v := range vector {
		buf = strconv.AppendUint(buf, math.Float64bits(v), 16)
		buf = append(buf, ',')
	}
	return string(buf)
}

type nopRecorder struct{}

func (nopRecorder) ObserveStage(context.Context, string, time.Duration) {}
func (nopRecorder) PredictionServed(string, bool)                      {}
func (nopRecorder) PredictionFailed(string)                            {}
