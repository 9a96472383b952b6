package ml

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// testModelJSON is a three-tree booster over the scaled features:
//
//	tree 0: GrLivArea   < 0   ? -0.3  : 0.4
//	tree 1: OverallQual < 0.5 ? -0.2  : 0.5
//	tree 2: FullBath    < 0   ? -0.1  : 0.15
const testModelJSON = `{
  "learner": {
    "attributes": {},
    "feature_names": ["GrLivArea", "FullBath", "TotalBsmtSF", "GarageCars", "YearBuilt", "OverallQual"],
    "feature_types": ["float", "float", "float", "float", "float", "float"],
    "gradient_booster": {
      "name": "gbtree",
      "model": {
        "gbtree_model_param": {"num_parallel_tree": "1", "num_trees": "3"},
        "tree_info": [0, 0, 0],
        "trees": [
          {
            "id": 0,
            "left_children": [1, -1, -1],
            "right_children": [2, -1, -1],
            "split_indices": [0, 0, 0],
            "split_conditions": [0.0, -0.3, 0.4],
            "default_left": [1, 0, 0],
            "base_weights": [0.0, -0.3, 0.4]
          },
          {
            "id": 1,
            "left_children": [1, -1, -1],
            "right_children": [2, -1, -1],
            "split_indices": [5, 0, 0],
            "split_conditions": [0.5, -0.2, 0.5],
            "default_left": [false, false, false],
            "base_weights": [0.0, -0.2, 0.5]
          },
          {
            "id": 2,
            "left_children": [1, -1, -1],
            "right_children": [2, -1, -1],
            "split_indices": [1, 0, 0],
            "split_conditions": [0.0, -0.1, 0.15],
            "default_left": [0, 0, 0],
            "base_weights": [0.0, -0.1, 0.15]
          }
        ]
      }
    },
    "learner_model_param": {"base_score": "[1.2E1]", "num_class": "0", "num_feature": "6", "num_target": "1"},
    "objective": {"name": "reg:squarederror", "reg_loss_param": {"scale_pos_weight": "1"}}
  },
  "version": [2, 1, 0]
}`

func testScalerParams() ScalerParams {
	return ScalerParams{
		Kind:           ScalerStandard,
		Mean:           []float64{1500, 1.5, 1000, 1.7, 1970, 6},
		Scale:          []float64{500, 0.5, 400, 0.7, 30, 1.4},
		FeatureNamesIn: []string{"GrLivArea", "FullBath", "TotalBsmtSF", "GarageCars", "YearBuilt", "OverallQual"},
	}
}

// writeArtifacts writes the fixture scaler and model into a temp dir.
func writeArtifacts(t *testing.T) (scalerPath, modelPath string) {
	t.Helper()
	dir := t.TempDir()

	scalerPath = filepath.Join(dir, "scaler.json")
	data, err := json.Marshal(testScalerParams())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(scalerPath, data, 0o600))

	modelPath = filepath.Join(dir, "model.json")
	require.NoError(t, os.WriteFile(modelPath, []byte(testModelJSON), 0o600))
	return scalerPath, modelPath
}
