package credit

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"creditrisk/logger"
	"creditrisk/ml"
)

type fakeRecorder struct {
	mu     sync.Mutex
	stages map[string]int
	served []string
	hits   int
	failed []string
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{stages: make(map[string]int)}
}

func (r *fakeRecorder) ObserveStage(_ context.Context, stage string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stages[stage]++
}

func (r *fakeRecorder) PredictionServed(label string, cached bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.served = append(r.served, label)
	if cached {
		r.hits++
	}
}

func (r *fakeRecorder) PredictionFailed(code string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed = append(r.failed, code)
}

type fakeOutcomes struct {
	labels []string
	err    error
}

func (o *fakeOutcomes) RecordOutcome(_ context.Context, label string) error {
	o.labels = append(o.labels, label)
	return o.err
}

func newTestPredictor(t *testing.T, opts Options) *Predictor {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = logger.NewTestLogger(t)
	}
	p, err := NewPredictor(testBundle(t), opts)
	require.NoError(t, err)
	return p
}

func requireCode(t *testing.T, err error, code ErrorCode) *Error {
	t.Helper()
	require.Error(t, err)
	var e *Error
	require.True(t, errors.As(err, &e), "expected *Error, got %T", err)
	assert.Equal(t, code, e.Code)
	return e
}

func TestPredictEndToEnd(t *testing.T) {
	p := newTestPredictor(t, Options{})

	body := []byte(`{"age":35,"gender":"Female","owns_car":"Yes","owns_house":"Yes","no_of_children":0,
		"net_yearly_income":50000,"no_of_days_employed":2000,"occupation_type":"Core staff",
		"total_family_members":2,"migrant_worker":"No","yearly_debt_payments":500,"credit_limit":10000,
		"credit_limit_used":20,"credit_score":700,"prev_defaults":0,"default_in_last_6months":0}`)

	got, err := p.Predict(context.Background(), body)
	require.NoError(t, err)
	assert.Contains(t, []string{LabelApproved, LabelDeclined}, got.Label)
	// 700 is below the fitted mean credit score
	assert.Equal(t, LabelDeclined, got.Label)
	assert.Equal(t, 1, got.Class)
	assert.InDelta(t, 0.9, got.Confidence, 1e-9)
}

func TestPredictLabels(t *testing.T) {
	p := newTestPredictor(t, Options{})

	tests := []struct {
		name  string
		patch map[string]interface{}
		want  string
	}{
		{"good score", nil, "Yes"},
		{"low score", map[string]interface{}{"credit_score": 600.0}, "No"},
		{"previous default", map[string]interface{}{"prev_defaults": "2"}, "No"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record := validRecord()
			for k, v := range tt.patch {
				record[k] = v
			}
			got, err := p.PredictRecord(context.Background(), record)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Label)
		})
	}
}

func TestPredictDeterministicAndCached(t *testing.T) {
	recorder := newFakeRecorder()
	outcomes := &fakeOutcomes{}
	p := newTestPredictor(t, Options{CacheSize: 16, Recorder: recorder, Outcomes: outcomes})
	body := recordJSON(t, validRecord())

	first, err := p.Predict(context.Background(), body)
	require.NoError(t, err)
	second, err := p.Predict(context.Background(), body)
	require.NoError(t, err)

	assert.Equal(t, first.Label, second.Label)
	assert.Equal(t, first.Class, second.Class)
	assert.False(t, first.Cached)
	assert.True(t, second.Cached)

	assert.Equal(t, 1, recorder.hits)
	assert.Equal(t, []string{"Yes", "Yes"}, recorder.served)
	assert.Equal(t, 1, recorder.stages["classify"])
	assert.Equal(t, 2, recorder.stages["scale"])
	assert.Equal(t, []string{"Yes", "Yes"}, outcomes.labels)
}

func TestPredictOutcomeErrorDoesNotFail(t *testing.T) {
	outcomes := &fakeOutcomes{err: errors.New("disk full")}
	p := newTestPredictor(t, Options{Outcomes: outcomes})

	got, err := p.PredictRecord(context.Background(), validRecord())
	require.NoError(t, err)
	assert.Equal(t, "Yes", got.Label)
}

func TestPredictConcurrent(t *testing.T) {
	p := newTestPredictor(t, Options{CacheSize: 8})
	body := recordJSON(t, validRecord())

	var wg sync.WaitGroup
	labels := make([]string, 32)
	for i := range labels {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got, err := p.Predict(context.Background(), body)
			if err == nil {
				labels[i] = got.Label
			}
		}(i)
	}
	wg.Wait()

	for _, label := range labels {
		assert.Equal(t, "Yes", label)
	}
}

func TestPredictMalformedBodies(t *testing.T) {
	recorder := newFakeRecorder()
	p := newTestPredictor(t, Options{Recorder: recorder})

	for _, body := range []string{"", "   ", "not json", "{", "[]", `"text"`, "{}", `{"age": 1} {"age": 2}`} {
		_, err := p.Predict(context.Background(), []byte(body))
		e := requireCode(t, err, ErrCodeMalformedRequest)
		assert.Equal(t, "Invalid JSON data", e.Message, "body %q", body)
		assert.Equal(t, http.StatusBadRequest, e.HTTPStatus())
	}
	assert.Len(t, recorder.failed, 8)
}

func TestPredictEachMissingField(t *testing.T) {
	p := newTestPredictor(t, Options{})

	for _, key := range Keys() {
		t.Run(key, func(t *testing.T) {
			record := validRecord()
			delete(record, key)

			_, err := p.PredictRecord(context.Background(), record)
			e := requireCode(t, err, ErrCodeMissingField)
			assert.Equal(t, key, e.Field)
			assert.Equal(t, http.StatusBadRequest, e.HTTPStatus())
		})
	}
}

func TestPredictNullAndMultipleMissing(t *testing.T) {
	p := newTestPredictor(t, Options{})

	record := validRecord()
	record["credit_score"] = nil
	delete(record, "age")

	_, err := p.PredictRecord(context.Background(), record)
	e := requireCode(t, err, ErrCodeMissingField)
	assert.Equal(t, "age", e.Field)
	assert.Contains(t, e.Details, "credit_score")
	assert.Equal(t, "Missing required fields", e.Message)
}

func TestPredictUnknownCategory(t *testing.T) {
	p := newTestPredictor(t, Options{})

	tests := []struct {
		key   string
		value interface{}
	}{
		{"occupation_type", "Astronauts"},
		{"occupation_type", ""},
		{"gender", "Other"},
		{"owns_car", "Maybe"},
		{"migrant_worker", "Sometimes"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			record := validRecord()
			record[tt.key] = tt.value

			_, err := p.PredictRecord(context.Background(), record)
			e := requireCode(t, err, ErrCodeUnknownCategory)
			assert.Equal(t, tt.key, e.Field)
			assert.Equal(t, http.StatusUnprocessableEntity, e.HTTPStatus())
		})
	}
}

func TestPredictTypeCast(t *testing.T) {
	p := newTestPredictor(t, Options{})

	tests := []struct {
		key   string
		value interface{}
	}{
		{"age", "thirty"},
		{"credit_score", true},
		{"net_yearly_income", []interface{}{1.0}},
		{"credit_limit", "NaN"},
		{"prev_defaults", "Inf"},
		{"gender", 1.0},
		{"migrant_worker", false},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			record := validRecord()
			record[tt.key] = tt.value

			_, err := p.PredictRecord(context.Background(), record)
			e := requireCode(t, err, ErrCodeTypeCast)
			assert.Equal(t, tt.key, e.Field)
		})
	}
}

func TestEncodeKnownCodes(t *testing.T) {
	p := newTestPredictor(t, Options{})
	encoders := p.Bundle().Encoders

	record := validRecord()
	record["gender"] = "Female"
	record["owns_car"] = "No"
	record["owns_house"] = "Yes"
	record["occupation_type"] = "IT staff"
	record["migrant_worker"] = "No"

	encoded, err := p.Encode(record)
	require.NoError(t, err)

	code := func(field, class string) int32 {
		c, err := encoders.Transform(field, class)
		require.NoError(t, err)
		return int32(c)
	}
	assert.Equal(t, code("gender", "F"), encoded.Gender)
	assert.Equal(t, code("owns_car", "N"), encoded.OwnsCar)
	assert.Equal(t, code("owns_house", "Y"), encoded.OwnsHouse)
	assert.Equal(t, code("occupation_type", "IT staff"), encoded.OccupationType)
	assert.Equal(t, 0.0, encoded.MigrantWorker)
}

func TestEncodeIsCaseInsensitiveForChoices(t *testing.T) {
	p := newTestPredictor(t, Options{})

	record := validRecord()
	record["gender"] = " male "
	record["owns_house"] = "NO"
	record["migrant_worker"] = "yes"

	encoded, err := p.Encode(record)
	require.NoError(t, err)
	assert.Equal(t, int32(1), encoded.Gender)
	assert.Equal(t, int32(0), encoded.OwnsHouse)
	assert.Equal(t, 1.0, encoded.MigrantWorker)
}

func TestEncodeCastsNumbers(t *testing.T) {
	p := newTestPredictor(t, Options{})

	record := validRecord()
	record["age"] = 35.9
	record["credit_limit_used"] = "20.7"
	record["prev_defaults"] = json.Number("1e0")
	record["net_yearly_income"] = " 50000.5 "
	record["default_in_last_6months"] = -0.5

	encoded, err := p.Encode(record)
	require.NoError(t, err)
	assert.Equal(t, int64(35), encoded.Age)
	assert.Equal(t, int64(20), encoded.CreditLimitUsed)
	assert.Equal(t, int64(1), encoded.PrevDefaults)
	assert.Equal(t, 50000.5, encoded.NetYearlyIncome)
	assert.Equal(t, int64(0), encoded.DefaultInLast6Months)

	// integer columns given as decimal strings truncate toward zero
	record = validRecord()
	record["age"] = "35.7"
	record["prev_defaults"] = " -1.9 "
	record["credit_limit_used"] = "99.99"
	encoded, err = p.Encode(record)
	require.NoError(t, err)
	assert.Equal(t, int64(35), encoded.Age)
	assert.Equal(t, int64(-1), encoded.PrevDefaults)
	assert.Equal(t, int64(99), encoded.CreditLimitUsed)
}

func TestScaleRoundTrip(t *testing.T) {
	p := newTestPredictor(t, Options{})

	encoded, err := p.Encode(validRecord())
	require.NoError(t, err)
	original := encoded.Vector()

	scaled, err := p.Scale(encoded)
	require.NoError(t, err)
	assert.NotEqual(t, original[0], scaled[0])
	// categorical codes are never scaled
	assert.Equal(t, original[1], scaled[1])
	assert.Equal(t, original[7], scaled[7])

	restored, err := p.Bundle().Scaler.InverseTransformColumns(Columns(), scaled)
	require.NoError(t, err)
	for i := range original {
		assert.InDelta(t, original[i], restored[i], 1e-9*math.Max(1, math.Abs(original[i])), Columns()[i])
	}
}

func TestLabelFor(t *testing.T) {
	label, err := LabelFor(1)
	require.NoError(t, err)
	assert.Equal(t, "No", label)

	label, err = LabelFor(0)
	require.NoError(t, err)
	assert.Equal(t, "Yes", label)

	_, err = LabelFor(2)
	requireCode(t, err, ErrCodePredictionFailed)
}

func TestNewPredictorRejectsInconsistentBundle(t *testing.T) {
	t.Run("missing encoder", func(t *testing.T) {
		bundle := testBundle(t)
		encoders, err := ml.NewEncoderSet(map[string][]string{"gender": {"F", "M"}})
		require.NoError(t, err)
		bundle.Encoders = encoders

		_, err = NewPredictor(bundle, Options{})
		requireCode(t, err, ErrCodeModelUnavailable)
	})

	t.Run("unknown scaler feature", func(t *testing.T) {
		bundle := testBundle(t)
		scaler, err := ml.NewStandardScaler([]string{"salary"}, []float64{1}, []float64{1})
		require.NoError(t, err)
		bundle.Scaler = scaler

		_, err = NewPredictor(bundle, Options{})
		requireCode(t, err, ErrCodeModelUnavailable)
	})

	t.Run("non-binary model", func(t *testing.T) {
		bundle := testBundle(t)
		tree, err := ml.NewDecisionTree([]ml.TreeNode{{IsLeaf: true, ClassLabel: 3}}, []int{0, 3})
		require.NoError(t, err)
		bundle.Model = tree

		_, err = NewPredictor(bundle, Options{})
		requireCode(t, err, ErrCodeModelUnavailable)
	})

	t.Run("model wants more features", func(t *testing.T) {
		bundle := testBundle(t)
		tree, err := ml.NewDecisionTree([]ml.TreeNode{
			{FeatureIdx: 20, LeftChild: 1, RightChild: 2},
			{IsLeaf: true, ClassLabel: 0},
			{IsLeaf: true, ClassLabel: 1},
		}, []int{0, 1})
		require.NoError(t, err)
		bundle.Model = tree

		_, err = NewPredictor(bundle, Options{})
		requireCode(t, err, ErrCodeModelUnavailable)
	})

	t.Run("nil bundle", func(t *testing.T) {
		_, err := NewPredictor(nil, Options{})
		requireCode(t, err, ErrCodeModelUnavailable)
	})
}

func TestOptionsAndSummary(t *testing.T) {
	p := newTestPredictor(t, Options{})

	options := p.Options()
	assert.Equal(t, []Option{{"Female", "Female"}, {"Male", "Male"}}, options["gender"])
	assert.Equal(t, []Option{{"No", "No"}, {"Yes", "Yes"}}, options["owns_car"])
	assert.Len(t, options["migrant_worker"], 2)
	require.Len(t, options["occupation_type"], len(occupations))
	assert.Equal(t, Option{Value: "IT staff", Label: "Information Technology (IT) & Software"}, options["occupation_type"][7])
	assert.Equal(t, Option{Value: "Managers", Label: "Managers"}, options["occupation_type"][9])
	assert.NotContains(t, options, "age")

	summary := p.Summary()
	assert.Equal(t, "decision_tree", summary.Model.Type)
	assert.Equal(t, Columns(), summary.Columns)
	assert.Equal(t, scaledColumns, summary.ScaledColumns)
	assert.Equal(t, occupations, summary.Encoders["occupation_type"])
}
