package credit

// DType is the numeric type a column is cast to before scaling.
type DType int

const (
	Int64 DType = iota
	Int32
	Float64
)

func (t DType) String() string {
	switch t {
	case Int64:
		return "int64"
	case Int32:
		return "int32"
	default:
		return "float64"
	}
}

// FieldKind says how a raw JSON value becomes a number.
type FieldKind int

const (
	// Numeric values are cast directly.
	Numeric FieldKind = iota
	// Categorical values go through the label encoder, optionally after a
	// human-readable translation (Female -> F, Yes -> Y).
	Categorical
	// Flag values are Yes/No answers mapped straight to 1.0/0.0.
	Flag
)

// Field describes one column of the applicant record.
type Field struct {
	Key    string
	Column string
	Type   DType
	Kind   FieldKind
	// Choices translates human-readable input; empty means the raw value
	// is passed to the encoder unchanged.
	Choices map[string]string
}

var (
	genderChoices = map[string]string{"Female": "F", "Male": "M"}
	yesNoChoices  = map[string]string{"Yes": "Y", "No": "N"}
	flagChoices   = map[string]float64{"Yes": 1.0, "No": 0.0}
)

// fields lists the record in the column order the model was trained on.
var fields = []Field{
	{Key: "age", Column: "age", Type: Int64, Kind: Numeric},
	{Key: "gender", Column: "gender", Type: Int32, Kind: Categorical, Choices: genderChoices},
	{Key: "owns_car", Column: "owns_car", Type: Int32, Kind: Categorical, Choices: yesNoChoices},
	{Key: "owns_house", Column: "owns_house", Type: Int32, Kind: Categorical, Choices: yesNoChoices},
	{Key: "no_of_children", Column: "no_of_children", Type: Float64, Kind: Numeric},
	{Key: "net_yearly_income", Column: "net_yearly_income", Type: Float64, Kind: Numeric},
	{Key: "no_of_days_employed", Column: "no_of_days_employed", Type: Float64, Kind: Numeric},
	{Key: "occupation_type", Column: "occupation_type", Type: Int32, Kind: Categorical},
	{Key: "total_family_members", Column: "total_family_members", Type: Float64, Kind: Numeric},
	{Key: "migrant_worker", Column: "migrant_worker", Type: Float64, Kind: Flag},
	{Key: "yearly_debt_payments", Column: "yearly_debt_payments", Type: Float64, Kind: Numeric},
	{Key: "credit_limit", Column: "credit_limit", Type: Float64, Kind: Numeric},
	{Key: "credit_limit_used", Column: "credit_limit_used(%)", Type: Int64, Kind: Numeric},
	{Key: "credit_score", Column: "credit_score", Type: Float64, Kind: Numeric},
	{Key: "prev_defaults", Column: "prev_defaults", Type: Int64, Kind: Numeric},
	{Key: "default_in_last_6months", Column: "default_in_last_6months", Type: Int64, Kind: Numeric},
}

func Fields() []Field {
	return append([]Field(nil), fields...)
}

// Keys returns the JSON keys a request must carry.
func Keys() []string {
	keys := make([]string, len(fields))
	for i, f := range fields {
		keys[i] = f.Key
	}
	return keys
}

// Columns returns the model column names in feature-vector order.
func Columns() []string {
	columns := make([]string, len(fields))
	for i, f := range fields {
		columns[i] = f.Column
	}
	return columns
}

// CategoricalColumns returns the columns that need a label encoder.
func CategoricalColumns() []string {
	var columns []string
	for _, f := range fields {
		if f.Kind == Categorical {
			columns = append(columns, f.Column)
		}
	}
	return columns
}
