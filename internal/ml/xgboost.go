package ml

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"

	"ames-pricer/internal/features"
)

// Objectives whose output is the raw margin, i.e. no link function.
var identityObjectives = map[string]bool{
	"reg:squarederror":     true,
	"reg:linear":           true,
	"reg:absoluteerror":    true,
	"reg:pseudohubererror": true,
}

// TreeEnsemble evaluates an XGBoost gbtree (or dart) model exported with
// Booster.save_model("model.json").
type TreeEnsemble struct {
	baseScore float32
	trees     []regTree
	weights   []float32
	objective string
	version   string
}

type regTree struct {
	left      []int
	right     []int
	feature   []int
	condition []float32
	defLeft   []bool
}

type xgbModelFile struct {
	Learner struct {
		FeatureNames      []string        `json:"feature_names"`
		GradientBooster   json.RawMessage `json:"gradient_booster"`
		LearnerModelParam struct {
			BaseScore  string `json:"base_score"`
			NumFeature string `json:"num_feature"`
			NumTarget  string `json:"num_target"`
		} `json:"learner_model_param"`
		Objective struct {
			Name string `json:"name"`
		} `json:"objective"`
	} `json:"learner"`
	Version []int `json:"version"`
}

type xgbBooster struct {
	Name  string `json:"name"`
	Model struct {
		Trees []xgbTree `json:"trees"`
	} `json:"model"`
	// dart only
	GBTree     *xgbBooster `json:"gbtree,omitempty"`
	WeightDrop []float64   `json:"weight_drop,omitempty"`
}

type xgbTree struct {
	LeftChildren    []int     `json:"left_children"`
	RightChildren   []int     `json:"right_children"`
	SplitIndices    []int     `json:"split_indices"`
	SplitConditions []float64 `json:"split_conditions"`
	DefaultLeft     flexBools `json:"default_left"`
}

// flexBools accepts both [0,1] and [false,true]; XGBoost versions disagree.
type flexBools []bool

func (f *flexBools) UnmarshalJSON(data []byte) error {
	var bools []bool
	if err := json.Unmarshal(data, &bools); err == nil {
		*f = bools
		return nil
	}
	var ints []int
	if err := json.Unmarshal(data, &ints); err != nil {
		return fmt.Errorf("default_left: %w", err)
	}
	out := make([]bool, len(ints))
	for i, v := range ints {
		out[i] = v != 0
	}
	*f = out
	return nil
}

// LoadXGBoostJSON reads an XGBoost JSON model file.
func LoadXGBoostJSON(path string) (*TreeEnsemble, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model file: %w", err)
	}
	return ParseXGBoostJSON(data)
}

// ParseXGBoostJSON decodes and validates an XGBoost JSON model.
func ParseXGBoostJSON(data []byte) (*TreeEnsemble, error) {
	var file xgbModelFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse model file: %w", err)
	}
	learner := file.Learner

	objective := learner.Objective.Name
	if !identityObjectives[objective] {
		return nil, fmt.Errorf("unsupported objective %q", objective)
	}
	if names := learner.FeatureNames; len(names) > 0 && !slices.Equal(names, features.FeatureOrder()) {
		return nil, fmt.Errorf("model trained on features %v, expected %v", names, features.FeatureOrder())
	}
	if n := learner.LearnerModelParam.NumFeature; n != "" && n != strconv.Itoa(features.Count) {
		return nil, fmt.Errorf("model expects %s features, expected %d", n, features.Count)
	}
	if n := learner.LearnerModelParam.NumTarget; n != "" && n != "1" {
		return nil, fmt.Errorf("model has %s targets, expected 1", n)
	}

	baseScore, err := parseBaseScore(learner.LearnerModelParam.BaseScore)
	if err != nil {
		return nil, err
	}

	if len(learner.GradientBooster) == 0 {
		return nil, errors.New("model has no gradient_booster")
	}
	var booster xgbBooster
	if err := json.Unmarshal(learner.GradientBooster, &booster); err != nil {
		return nil, fmt.Errorf("failed to parse gradient_booster: %w", err)
	}

	rawTrees := booster.Model.Trees
	var weights []float32
	switch booster.Name {
	case "gbtree":
	case "dart":
		if booster.GBTree == nil {
			return nil, errors.New("dart booster without gbtree")
		}
		rawTrees = booster.GBTree.Model.Trees
		if len(booster.WeightDrop) != len(rawTrees) {
			return nil, fmt.Errorf("dart has %d weights for %d trees", len(booster.WeightDrop), len(rawTrees))
		}
		weights = make([]float32, len(booster.WeightDrop))
		for i, w := range booster.WeightDrop {
			weights[i] = float32(w)
		}
	default:
		return nil, fmt.Errorf("unsupported booster %q", booster.Name)
	}
	if len(rawTrees) == 0 {
		return nil, errors.New("model has no trees")
	}

	trees := make([]regTree, len(rawTrees))
	for i, raw := range rawTrees {
		tree, err := buildTree(raw)
		if err != nil {
			return nil, fmt.Errorf("tree %d: %w", i, err)
		}
		trees[i] = tree
	}

	return &TreeEnsemble{
		baseScore: baseScore,
		trees:     trees,
		weights:   weights,
		objective: objective,
		version:   formatVersion(file.Version),
	}, nil
}

// parseBaseScore handles both "5E-1" and the newer "[5E-1]" encodings.
func parseBaseScore(raw string) (float32, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimSuffix(strings.TrimPrefix(s, "["), "]")
	if s == "" {
		return 0, errors.New("model has no base_score")
	}
	if strings.Contains(s, ",") {
		return 0, fmt.Errorf("multi-target base_score %q not supported", raw)
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 32)
	if err != nil {
		return 0, fmt.Errorf("invalid base_score %q: %w", raw, err)
	}
	return float32(v), nil
}

func buildTree(raw xgbTree) (regTree, error) {
	n := len(raw.LeftChildren)
	if n == 0 {
		return regTree{}, errors.New("empty tree")
	}
	if len(raw.RightChildren) != n || len(raw.SplitIndices) != n || len(raw.SplitConditions) != n {
		return regTree{}, errors.New("node arrays have different lengths")
	}
	defLeft := []bool(raw.DefaultLeft)
	if len(defLeft) == 0 {
		defLeft = make([]bool, n)
	}
	if len(defLeft) != n {
		return regTree{}, errors.New("default_left length mismatch")
	}

	tree := regTree{
		left:      raw.LeftChildren,
		right:     raw.RightChildren,
		feature:   raw.SplitIndices,
		condition: make([]float32, n),
		defLeft:   defLeft,
	}
	for i := 0; i < n; i++ {
		tree.condition[i] = float32(raw.SplitConditions[i])
		if tree.left[i] == -1 {
			continue
		}
		if tree.left[i] <= i || tree.left[i] >= n || tree.right[i] <= i || tree.right[i] >= n {
			return regTree{}, fmt.Errorf("node %d has invalid children", i)
		}
		if tree.feature[i] < 0 || tree.feature[i] >= features.Count {
			return regTree{}, fmt.Errorf("node %d splits on feature %d", i, tree.feature[i])
		}
	}
	return tree, nil
}

// leaf walks the tree for row. Children always have larger indices than
// their parent (checked in buildTree), so the walk terminates.
func (t *regTree) leaf(row []float32) float32 {
	node := 0
	for t.left[node] != -1 {
		v := row[t.feature[node]]
		switch {
		case v != v: // missing
			if t.defLeft[node] {
				node = t.left[node]
			} else {
				node = t.right[node]
			}
		case v < t.condition[node]:
			node = t.left[node]
		default:
			node = t.right[node]
		}
	}
	return t.condition[node]
}

// Predict implements Regressor. Arithmetic is float32, as in XGBoost.
func (m *TreeEnsemble) Predict(_ context.Context, row []float64) (float64, error) {
	if len(row) != features.Count {
		return 0, &ShapeError{Want: features.Count, Got: len(row)}
	}
	x := make([]float32, len(row))
	for i, v := range row {
		x[i] = float32(v)
	}

	sum := m.baseScore
	for i := range m.trees {
		leaf := m.trees[i].leaf(x)
		if m.weights != nil {
			leaf *= m.weights[i]
		}
		sum += leaf
	}
	out := float64(sum)
	if math.IsNaN(out) {
		return 0, errors.New("model output is NaN")
	}
	return out, nil
}

// NumTrees returns the number of trees in the ensemble.
func (m *TreeEnsemble) NumTrees() int { return len(m.trees) }

// Objective returns the training objective.
func (m *TreeEnsemble) Objective() string { return m.objective }

// Version returns the XGBoost version that wrote the model, if recorded.
func (m *TreeEnsemble) Version() string { return m.version }

func formatVersion(parts []int) string {
	if len(parts) == 0 {
		return ""
	}
	s := make([]string, len(parts))
	for i, p := range parts {
		s[i] = strconv.Itoa(p)
	}
	return strings.Join(s, ".")
}
