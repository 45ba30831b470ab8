package inference

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
)

// Artifact filenames inside the model store directory.
const (
	modelFile       = "model.json"
	countryFile     = "le_country.json"
	locationFile    = "le_loc.json"
	categoryFile    = "le_cat.json"
	DefaultModelDir = "./models_store"
)

// Config holds configuration for the inference engine.
type Config struct {
	// Dir is the model store directory (default: ./models_store).
	Dir string

	// Logger for engine operations.
	Logger zerolog.Logger
}

// Engine holds the classifier and its three label encoders as one
// immutable bundle. The bundle is loaded once and read-only afterwards;
// concurrent predictions share it without further locking.
type Engine struct {
	dir    string
	logger zerolog.Logger

	mu     sync.RWMutex
	bundle *bundle
}

type bundle struct {
	model      *treeModel
	countries  *LabelEncoder
	locations  *LabelEncoder
	categories *LabelEncoder
}

// NewEngine creates an engine. Artifacts are not touched until Load.
func NewEngine(cfg Config) *Engine {
	dir := cfg.Dir
	if dir == "" {
		dir = DefaultModelDir
	}
	return &Engine{dir: dir, logger: cfg.Logger}
}

// Load reads all four artifacts atomically: if any is missing or corrupt
// the engine stays unloaded. Calling Load on a loaded engine is a no-op.
func (e *Engine) Load() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.bundle != nil {
		return nil
	}

	model, err := loadTreeModel(filepath.Join(e.dir, modelFile))
	if err != nil {
		return fmt.Errorf("load classifier: %w", err)
	}

	countries, err := LoadLabelEncoder(filepath.Join(e.dir, countryFile))
	if err != nil {
		return fmt.Errorf("load country encoder: %w", err)
	}

	locations, err := LoadLabelEncoder(filepath.Join(e.dir, locationFile))
	if err != nil {
		return fmt.Errorf("load location encoder: %w", err)
	}

	categories, err := LoadLabelEncoder(filepath.Join(e.dir, categoryFile))
	if err != nil {
		return fmt.Errorf("load category encoder: %w", err)
	}

	// A trained-schema mismatch is a configuration error. Refusing to
	// load beats silently feeding the model misaligned columns.
	if err := verifyColumns(model.Columns); err != nil {
		return err
	}
	if model.NumClass != categories.Len() {
		return fmt.Errorf("%w: classifier has %d classes, category encoder has %d",
			ErrSchemaMismatch, model.NumClass, categories.Len())
	}

	e.bundle = &bundle{
		model:      model,
		countries:  countries,
		locations:  locations,
		categories: categories,
	}

	e.logger.Info().
		Str("dir", e.dir).
		Int("trees", len(model.Trees)).
		Int("classes", model.NumClass).
		Int("countries", countries.Len()).
		Int("locations", locations.Len()).
		Msg("inference resources loaded")

	return nil
}

// Loaded reports whether the resource bundle is available.
func (e *Engine) Loaded() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.bundle != nil
}

// CountryEncoder returns the trained country encoder, or nil when the
// engine is not loaded.
func (e *Engine) CountryEncoder() *LabelEncoder {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.bundle == nil {
		return nil
	}
	return e.bundle.countries
}

// LocationEncoder returns the trained city encoder, or nil when the
// engine is not loaded.
func (e *Engine) LocationEncoder() *LabelEncoder {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.bundle == nil {
		return nil
	}
	return e.bundle.locations
}

// Predict scores one engineered row and decodes the winning class.
// An unloaded engine attempts one load; a second failure fails the call.
func (e *Engine) Predict(row FeatureRow) (*PredictionResult, error) {
	b, err := e.ensureLoaded()
	if err != nil {
		return nil, err
	}

	if err := matchColumns(b.model.Columns, row.Columns); err != nil {
		return nil, err
	}

	proba := b.model.predictProba(row.Values)
	if len(proba) == 0 {
		return nil, ErrEmptyPrediction
	}

	best := 0
	for i, p := range proba {
		if p > proba[best] {
			best = i
		}
	}

	category, err := b.categories.InverseTransform(best)
	if err != nil {
		return nil, fmt.Errorf("decode predicted class: %w", err)
	}

	// Zip encoder classes with the probability vector in class order so
	// each label keeps its own probability.
	probabilities := make(map[string]float64, len(proba))
	for i, class := range b.categories.Classes() {
		probabilities[class] = proba[i]
	}

	return &PredictionResult{
		Category:      category,
		Probabilities: probabilities,
		Summary:       SummaryMessage(category),
	}, nil
}

// PredictRecord engineers a raw record with the loaded encoders and
// scores it in one call.
func (e *Engine) PredictRecord(rec Record) (*PredictionResult, error) {
	b, err := e.ensureLoaded()
	if err != nil {
		return nil, err
	}
	return e.Predict(BuildFeatures(rec, b.countries, b.locations))
}

func (e *Engine) ensureLoaded() (*bundle, error) {
	e.mu.RLock()
	b := e.bundle
	e.mu.RUnlock()
	if b != nil {
		return b, nil
	}

	if err := e.Load(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotLoaded, err)
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.bundle, nil
}

func verifyColumns(trained []string) error {
	return matchColumns(trained, ModelColumns())
}

func matchColumns(trained, got []string) error {
	if len(trained) != len(got) {
		return fmt.Errorf("%w: want %d columns, got %d", ErrSchemaMismatch, len(trained), len(got))
	}
	for i, col := range trained {
		if got[i] != col {
			return fmt.Errorf("%w: column %d is %q, want %q", ErrSchemaMismatch, i, got[i], col)
		}
	}
	return nil
}

// treeModel is a compact gradient-boosted tree ensemble exported by the
// training pipeline. Each tree contributes a margin to one class; class
// probabilities are the softmax of the summed margins.
type treeModel struct {
	Columns   []string `json:"columns"`
	NumClass  int      `json:"num_class"`
	BaseScore float64  `json:"base_score"`
	Trees     []tree   `json:"trees"`
}

type tree struct {
	Class int        `json:"class"`
	Nodes []treeNode `json:"nodes"`
}

// treeNode is one node in pre-order layout. Feature -1 marks a leaf and
// Value carries its margin; children always point forward in the array.
type treeNode struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold"`
	Left      int     `json:"left"`
	Right     int     `json:"right"`
	Value     float64 `json:"value"`
}

func loadTreeModel(path string) (*treeModel, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model artifact: %w", err)
	}

	var m treeModel
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decode model artifact %s: %w", path, err)
	}
	if err := m.validate(); err != nil {
		return nil, fmt.Errorf("model artifact %s: %w", path, err)
	}
	return &m, nil
}

func (m *treeModel) validate() error {
	if m.NumClass < 2 {
		return fmt.Errorf("num_class %d, want at least 2", m.NumClass)
	}
	if len(m.Trees) == 0 {
		return fmt.Errorf("%w: ensemble has no trees", ErrEmptyPrediction)
	}
	for ti, t := range m.Trees {
		if t.Class < 0 || t.Class >= m.NumClass {
			return fmt.Errorf("tree %d targets class %d of %d", ti, t.Class, m.NumClass)
		}
		if len(t.Nodes) == 0 {
			return fmt.Errorf("tree %d has no nodes", ti)
		}
		for ni, n := range t.Nodes {
			if n.Feature < 0 {
				continue
			}
			if n.Feature >= len(m.Columns) {
				return fmt.Errorf("tree %d node %d splits on feature %d of %d", ti, ni, n.Feature, len(m.Columns))
			}
			// Forward-only children guarantee traversal terminates.
			if n.Left <= ni || n.Left >= len(t.Nodes) || n.Right <= ni || n.Right >= len(t.Nodes) {
				return fmt.Errorf("tree %d node %d has invalid children %d/%d", ti, ni, n.Left, n.Right)
			}
		}
	}
	return nil
}

// predictProba scores one feature vector into a class distribution.
func (m *treeModel) predictProba(x []float64) []float64 {
	margins := make([]float64, m.NumClass)
	for i := range margins {
		margins[i] = m.BaseScore
	}
	for _, t := range m.Trees {
		margins[t.Class] += t.leafValue(x)
	}
	return softmax(margins)
}

func (t *tree) leafValue(x []float64) float64 {
	i := 0
	for t.Nodes[i].Feature >= 0 {
		if x[t.Nodes[i].Feature] <= t.Nodes[i].Threshold {
			i = t.Nodes[i].Left
		} else {
			i = t.Nodes[i].Right
		}
	}
	return t.Nodes[i].Value
}

func softmax(margins []float64) []float64 {
	max := margins[0]
	for _, m := range margins[1:] {
		if m > max {
			max = m
		}
	}

	out := make([]float64, len(margins))
	sum := 0.0
	for i, m := range margins {
		out[i] = math.Exp(m - max)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}
