package ml

import (
	"errors"
	"fmt"
	"sort"
)

// UnknownCategoryError is returned when a value was not among the classes an
// encoder was fitted on.
type UnknownCategoryError struct {
	Field string
	Value string
}

func (e *UnknownCategoryError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("unknown category %q", e.Value)
	}
	return fmt.Sprintf("unknown category %q for %s", e.Value, e.Field)
}

// LabelEncoder maps category strings to the integer code assigned at fit
// time. The code of a class is its position in the class list.
type LabelEncoder struct {
	classes []string
	index   map[string]int
}

func NewLabelEncoder(classes []string) (*LabelEncoder, error) {
	if len(classes) == 0 {
		return nil, errors.New("encoder has no classes")
	}
	index := make(map[string]int, len(classes))
	for i, class := range classes {
		if _, dup := index[class]; dup {
			return nil, fmt.Errorf("duplicate class %q", class)
		}
		index[class] = i
	}
	return &LabelEncoder{
		classes: append([]string(nil), classes...),
		index:   index,
	}, nil
}

func (e *LabelEncoder) Transform(value string) (int, error) {
	code, ok := e.index[value]
	if !ok {
		return 0, &UnknownCategoryError{Value: value}
	}
	return code, nil
}

func (e *LabelEncoder) InverseTransform(code int) (string, error) {
	if code < 0 || code >= len(e.classes) {
		return "", fmt.Errorf("code %d out of range", code)
	}
	return e.classes[code], nil
}

func (e *LabelEncoder) Has(value string) bool {
	_, ok := e.index[value]
	return ok
}

func (e *LabelEncoder) Classes() []string {
	return append([]string(nil), e.classes...)
}

// EncoderSet holds one fitted LabelEncoder per categorical field.
type EncoderSet struct {
	encoders map[string]*LabelEncoder
}

type encoderFile struct {
	Encoders map[string]struct {
		Classes []string `json:"classes" yaml:"classes"`
	} `json:"encoders" yaml:"encoders"`
}

func NewEncoderSet(classes map[string][]string) (*EncoderSet, error) {
	if len(classes) == 0 {
		return nil, errors.New("no encoders defined")
	}
	set := &EncoderSet{encoders: make(map[string]*LabelEncoder, len(classes))}
	for field, values := range classes {
		encoder, err := NewLabelEncoder(values)
		if err != nil {
			return nil, fmt.Errorf("encoder %s: %w", field, err)
		}
		set.encoders[field] = encoder
	}
	return set, nil
}

// LoadEncoderSet reads an encoder artifact and returns the set together with
// the artifact checksum.
func LoadEncoderSet(path string) (*EncoderSet, string, error) {
	var file encoderFile
	checksum, err := readArtifact(path, &file)
	if err != nil {
		return nil, "", err
	}
	classes := make(map[string][]string, len(file.Encoders))
	for field, entry := range file.Encoders {
		classes[field] = entry.Classes
	}
	set, err := NewEncoderSet(classes)
	if err != nil {
		return nil, "", err
	}
	return set, checksum, nil
}

func (s *EncoderSet) Transform(field, value string) (int, error) {
	encoder, ok := s.encoders[field]
	if !ok {
		return 0, fmt.Errorf("no encoder for %s", field)
	}
	code, err := encoder.Transform(value)
	if err != nil {
		var unknown *UnknownCategoryError
		if errors.As(err, &unknown) {
			unknown.Field = field
		}
		return 0, err
	}
	return code, nil
}

func (s *EncoderSet) Encoder(field string) (*LabelEncoder, bool) {
	encoder, ok := s.encoders[field]
	return encoder, ok
}

func (s *EncoderSet) Fields() []string {
	fields := make([]string, 0, len(s.encoders))
	for field := range s.encoders {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fields
}
