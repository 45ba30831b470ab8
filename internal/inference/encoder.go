package inference

import (
	"encoding/json"
	"fmt"
	"os"
)

// UnknownCode is returned for values outside the trained vocabulary.
// Unseen locations degrade to this sentinel instead of failing the
// prediction.
const UnknownCode = -1

// LabelEncoder maps trained string categories to integer codes.
// The code of a class is its position in the trained class list.
type LabelEncoder struct {
	classes []string
	index   map[string]int
}

// NewLabelEncoder builds an encoder from an ordered class list.
func NewLabelEncoder(classes []string) *LabelEncoder {
	index := make(map[string]int, len(classes))
	for i, c := range classes {
		index[c] = i
	}
	return &LabelEncoder{classes: classes, index: index}
}

// LoadLabelEncoder reads an encoder artifact from disk.
// The artifact is a JSON object with a "classes" array.
func LoadLabelEncoder(path string) (*LabelEncoder, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read encoder artifact: %w", err)
	}

	var artifact struct {
		Classes []string `json:"classes"`
	}
	if err := json.Unmarshal(raw, &artifact); err != nil {
		return nil, fmt.Errorf("decode encoder artifact %s: %w", path, err)
	}
	if len(artifact.Classes) == 0 {
		return nil, fmt.Errorf("encoder artifact %s has no classes", path)
	}

	return NewLabelEncoder(artifact.Classes), nil
}

// Transform returns the trained code for value, or UnknownCode when the
// value is not part of the vocabulary. It never fails.
func (e *LabelEncoder) Transform(value string) int {
	if code, ok := e.index[value]; ok {
		return code
	}
	return UnknownCode
}

// InverseTransform decodes a trained code back to its class label.
func (e *LabelEncoder) InverseTransform(code int) (string, error) {
	if code < 0 || code >= len(e.classes) {
		return "", fmt.Errorf("code %d outside trained vocabulary of %d classes", code, len(e.classes))
	}
	return e.classes[code], nil
}

// Classes returns the trained class list in code order.
func (e *LabelEncoder) Classes() []string {
	out := make([]string, len(e.classes))
	copy(out, e.classes)
	return out
}

// Len returns the vocabulary size.
func (e *LabelEncoder) Len() int {
	return len(e.classes)
}
