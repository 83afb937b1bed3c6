package credit

import (
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/cases"

	"creditrisk/ml"
)

// Applicant is a request record after translation and casting, before label
// encoding. Categorical fields hold encoder classes ("F", "Y", "Laborers").
type Applicant struct {
	Age                  int64
	Gender               string
	OwnsCar              string
	OwnsHouse            string
	NoOfChildren         float64
	NetYearlyIncome      float64
	NoOfDaysEmployed     float64
	OccupationType       string
	TotalFamilyMembers   float64
	MigrantWorker        float64
	YearlyDebtPayments   float64
	CreditLimit          float64
	CreditLimitUsed      int64
	CreditScore          float64
	PrevDefaults         int64
	DefaultInLast6Months int64
}

// EncodedRecord carries every column in its target type.
type EncodedRecord struct {
	Age                  int64
	Gender               int32
	OwnsCar              int32
	OwnsHouse            int32
	NoOfChildren         float64
	NetYearlyIncome      float64
	NoOfDaysEmployed     float64
	OccupationType       int32
	TotalFamilyMembers   float64
	MigrantWorker        float64
	YearlyDebtPayments   float64
	CreditLimit          float64
	CreditLimitUsed      int64
	CreditScore          float64
	PrevDefaults         int64
	DefaultInLast6Months int64
}

// Vector lays the record out in Columns() order.
func (r *EncodedRecord) Vector() []float64 {
	return []float64{
		float64(r.Age),
		float64(r.Gender),
		float64(r.OwnsCar),
		float64(r.OwnsHouse),
		r.NoOfChildren,
		r.NetYearlyIncome,
		r.NoOfDaysEmployed,
		float64(r.OccupationType),
		r.TotalFamilyMembers,
		r.MigrantWorker,
		r.YearlyDebtPayments,
		r.CreditLimit,
		float64(r.CreditLimitUsed),
		r.CreditScore,
		float64(r.PrevDefaults),
		float64(r.DefaultInLast6Months),
	}
}

// ParseApplicant translates human-readable answers and casts numeric
// fields of a record that already passed the request schema.
func ParseApplicant(raw map[string]interface{}) (*Applicant, error) {
	a := &Applicant{}
	for _, f := range fields {
		value := raw[f.Key]
		switch f.Kind {
		case Categorical:
			class, err := translateCategory(f, value)
			if err != nil {
				return nil, err
			}
			a.setClass(f.Key, class)
		case Flag:
			flag, err := translateFlag(f, value)
			if err != nil {
				return nil, err
			}
			a.MigrantWorker = flag
		default:
			number, err := castNumber(f, value)
			if err != nil {
				return nil, err
			}
			a.setNumber(f.Key, number)
		}
	}
	return a, nil
}

// Encode runs every categorical field through its label encoder.
func (a *Applicant) Encode(encoders *ml.EncoderSet) (*EncodedRecord, error) {
	codes := make(map[string]int32, 4)
	for _, f := range fields {
		if f.Kind != Categorical {
			continue
		}
		class := a.class(f.Key)
		code, err := encoders.Transform(f.Column, class)
		if err != nil {
			var unknown *ml.UnknownCategoryError
			if errors.As(err, &unknown) {
				return nil, NewUnknownCategoryError(f.Key, class, err)
			}
			return nil, NewModelUnavailableError(err)
		}
		if code > math.MaxInt32 {
			return nil, NewTypeCastError(f.Key, code, Int32)
		}
		codes[f.Key] = int32(code)
	}

	return &EncodedRecord{
		Age:                  a.Age,
		Gender:               codes["gender"],
		OwnsCar:              codes["owns_car"],
		OwnsHouse:            codes["owns_house"],
		NoOfChildren:         a.NoOfChildren,
		NetYearlyIncome:      a.NetYearlyIncome,
		NoOfDaysEmployed:     a.NoOfDaysEmployed,
		OccupationType:       codes["occupation_type"],
		TotalFamilyMembers:   a.TotalFamilyMembers,
		MigrantWorker:        a.MigrantWorker,
		YearlyDebtPayments:   a.YearlyDebtPayments,
		CreditLimit:          a.CreditLimit,
		CreditLimitUsed:      a.CreditLimitUsed,
		CreditScore:          a.CreditScore,
		PrevDefaults:         a.PrevDefaults,
		DefaultInLast6Months: a.DefaultInLast6Months,
	}, nil
}

func (a *Applicant) class(key string) string {
	switch key {
	case "gender":
		return a.Gender
	case "owns_car":
		return a.OwnsCar
	case "owns_house":
		return a.OwnsHouse
	default:
		return a.OccupationType
	}
}

func (a *Applicant) setClass(key, class string) {
	switch key {
	case "gender":
		a.Gender = class
	case "owns_car":
		a.OwnsCar = class
	case "owns_house":
		a.OwnsHouse = class
	case "occupation_type":
		a.OccupationType = class
	}
}

func (a *Applicant) setNumber(key string, v float64) {
	switch key {
	case "age":
		a.Age = int64(v)
	case "no_of_children":
		a.NoOfChildren = v
	case "net_yearly_income":
		a.NetYearlyIncome = v
	case "no_of_days_employed":
		a.NoOfDaysEmployed = v
	case "total_family_members":
		a.TotalFamilyMembers = v
	case "yearly_debt_payments":
		a.YearlyDebtPayments = v
	case "credit_limit":
		a.CreditLimit = v
	case "credit_limit_used":
		a.CreditLimitUsed = int64(v)
	case "credit_score":
		a.CreditScore = v
	case "prev_defaults":
		a.PrevDefaults = int64(v)
	case "default_in_last_6months":
		a.DefaultInLast6Months = int64(v)
	}
}

func fold(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}

func translateCategory(f Field, value interface{}) (string, error) {
	s, ok := value.(string)
	if !ok {
		return "", NewTypeCastError(f.Key, value, f.Type)
	}
	if len(f.Choices) == 0 {
		return strings.TrimSpace(s), nil
	}
	folded := fold(s)
	for human, class := range f.Choices {
		if fold(human) == folded {
			return class, nil
		}
	}
	return "", NewUnknownCategoryError(f.Key, s, nil)
}

func translateFlag(f Field, value interface{}) (float64, error) {
	s, ok := value.(string)
	if !ok {
		return 0, NewTypeCastError(f.Key, value, f.Type)
	}
	folded := fold(s)
	for human, flag := range flagChoices {
		if fold(human) == folded {
			return flag, nil
		}
	}
	return 0, NewUnknownCategoryError(f.Key, s, nil)
}

// castNumber accepts JSON numbers and numeric strings. Integer columns
// truncate toward zero.
func castNumber(f Field, value interface{}) (float64, error) {
	var x float64
	switch v := value.(type) {
	case json.Number:
		parsed, err := parseNumeric(v.String(), f.Type)
		if err != nil {
			return 0, NewTypeCastError(f.Key, value, f.Type)
		}
		x = parsed
	case string:
		parsed, err := parseNumeric(strings.TrimSpace(v), f.Type)
		if err != nil {
			return 0, NewTypeCastError(f.Key, value, f.Type)
		}
		x = parsed
	case float64:
		x = v
	case float32:
		x = float64(v)
	case int:
		x = float64(v)
	case int32:
		x = float64(v)
	case int64:
		x = float64(v)
	default:
		return 0, NewTypeCastError(f.Key, value, f.Type)
	}

	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0, NewTypeCastError(f.Key, value, f.Type)
	}
	if f.Type == Float64 {
		return x, nil
	}
	x = math.Trunc(x)
	if x >= math.MaxInt64 || x < math.MinInt64 {
		return 0, NewTypeCastError(f.Key, value, f.Type)
	}
	return x, nil
}

func parseNumeric(s string, target DType) (float64, error) {
	if target != Float64 {
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return float64(n), nil
		}
	}
	return strconv.ParseFloat(s, 64)
}
