package bridge

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cellarium-ai/validate-schema/internal/gencode"
	"github.com/cellarium-ai/validate-schema/internal/gencode/gencodetest"
	"github.com/cellarium-ai/validate-schema/internal/validate"
)

// helperEngine runs this test binary as the external validator, playing scenario.
func helperEngine(t *testing.T, scenario string) *Engine {
	t.Helper()
	e := New(os.Args[0], "-test.run=TestHelperProcess", "--")
	e.SetEnv([]string{"GO_WANT_HELPER_PROCESS=1", "HELPER_SCENARIO=" + scenario})
	return e
}

func featureValidator(t *testing.T, version int) *validate.FeatureValidator {
	t.Helper()
	dir := gencodetest.WriteStandardFiles(t, t.TempDir())
	return validate.NewFeatureValidator(gencode.NewLoader(gencode.NewFiles(dir)), version)
}

func TestCheckAvailable(t *testing.T) {
	assert.NoError(t, New(os.Args[0]).CheckAvailable())

	err := New("cellarium-no-such-validator").CheckAvailable()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingDependency)
	assert.Contains(t, err.Error(), "cellarium-no-such-validator")
}

func TestNew_DefaultCommand(t *testing.T) {
	assert.Equal(t, DefaultCommand, New("").Command())
}

func TestValidateAdata_Valid(t *testing.T) {
	e := helperEngine(t, "valid")

	report, err := e.ValidateAdata(context.Background(), "in.h5ad", validate.EngineOptions{}, featureValidator(t, 44))
	require.NoError(t, err)
	assert.True(t, report.IsValid)
	assert.Empty(t, report.Errors)
	assert.True(t, report.IsSeuratConvertible)
}

func TestValidateAdata_ErrorsInOrder(t *testing.T) {
	e := helperEngine(t, "invalid")

	report, err := e.ValidateAdata(context.Background(), "in.h5ad", validate.EngineOptions{}, featureValidator(t, 44))
	require.NoError(t, err)
	assert.False(t, report.IsValid)
	assert.Equal(t, []string{
		"'obs' is missing column 'tissue_ontology_term_id'.",
		"Could not infer organism from feature ID 'FBgn0000008' in 'var', make sure it is a valid ID.",
		"'ENSG00000230021' is not a valid feature ID in 'raw.var'.",
	}, report.Errors)
	assert.Equal(t, []string{"raw.X is not normalized"}, report.Warnings)
}

func TestValidateAdata_PassesIgnoreLabels(t *testing.T) {
	e := helperEngine(t, "echo-args")

	report, err := e.ValidateAdata(context.Background(), "in.h5ad", validate.EngineOptions{IgnoreLabels: true}, featureValidator(t, 44))
	require.NoError(t, err)
	assert.Equal(t, []string{"validate --skip-feature-ids --ignore-labels in.h5ad"}, report.Warnings)
}

func TestValidateAdata_UnsupportedVersionAborts(t *testing.T) {
	e := helperEngine(t, "valid")

	_, err := e.ValidateAdata(context.Background(), "in.h5ad", validate.EngineOptions{}, featureValidator(t, 42))
	require.Error(t, err)
	assert.ErrorIs(t, err, gencode.ErrUnsupportedVersion)
}

func TestValidateAdata_NoResult(t *testing.T) {
	e := helperEngine(t, "no-done")

	_, err := e.ValidateAdata(context.Background(), "in.h5ad", validate.EngineOptions{}, featureValidator(t, 44))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "without a result")
}

func TestValidateAdata_Crash(t *testing.T) {
	e := helperEngine(t, "crash")

	_, err := e.ValidateAdata(context.Background(), "in.h5ad", validate.EngineOptions{}, featureValidator(t, 44))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "external validator")
}

func TestWriteLabels(t *testing.T) {
	e := helperEngine(t, "labels")
	out := filepath.Join(t.TempDir(), "labeled.h5ad")

	res, err := e.WriteLabels(context.Background(), "in.h5ad", out, featureValidator(t, 44))
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, []string{"no label for 'ENSG00000000000'"}, res.Errors)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "ENSG00000141510\tTP53\t2579\tprotein_coding\n", string(data))
}

func TestWriteLabels_LookupError(t *testing.T) {
	e := helperEngine(t, "labels")
	out := filepath.Join(t.TempDir(), "labeled.h5ad")

	_, err := e.WriteLabels(context.Background(), "in.h5ad", out, featureValidator(t, 42))
	require.Error(t, err)
	assert.ErrorIs(t, err, gencode.ErrUnsupportedVersion)
}

// TestHelperProcess is not a real test. It stands in for the external validator
// when run by helperEngine.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	defer os.Exit(0)

	args := os.Args
	for len(args) > 0 && args[0] != "--" {
		args = args[1:]
	}
	if len(args) > 0 {
		args = args[1:]
	}

	emit := func(v map[string]any) {
		b, _ := json.Marshal(v)
		fmt.Println(string(b))
	}

	switch os.Getenv("HELPER_SCENARIO") {
	case "valid":
		fmt.Println("Loading dataset")
		emit(map[string]any{"event": "feature", "id": "ENSG00000141510", "df": "var"})
		emit(map[string]any{"event": "feature", "id": "ENSMUSG00000059552", "df": "var"})
		emit(map[string]any{"event": "done", "is_valid": true, "is_seurat_convertible": true})
	case "invalid":
		emit(map[string]any{"event": "error", "message": "'obs' is missing column 'tissue_ontology_term_id'."})
		emit(map[string]any{"event": "warning", "message": "raw.X is not normalized"})
		emit(map[string]any{"event": "feature", "id": "FBgn0000008", "df": "var"})
		emit(map[string]any{"event": "feature", "id": "ENSG00000230021", "df": "raw.var"})
		emit(map[string]any{"event": "done", "is_valid": false})
	case "echo-args":
		emit(map[string]any{"event": "warning", "message": strings.Join(args, " ")})
		emit(map[string]any{"event": "done", "is_valid": true})
	case "no-done":
		emit(map[string]any{"event": "feature", "id": "ENSG00000141510", "df": "var"})
	case "crash":
		fmt.Fprintln(os.Stderr, "Traceback (most recent call last):")
		os.Exit(3)
	case "labels":
		in := bufio.NewScanner(os.Stdin)
		out := args[len(args)-1]
		var lines []string
		for _, id := range []string{"ENSG00000141510", "ENSG00000000000"} {
			emit(map[string]any{"event": "gene", "id": id})
			if !in.Scan() {
				os.Exit(4)
			}
			var reply geneReply
			if err := json.Unmarshal(in.Bytes(), &reply); err != nil {
				os.Exit(5)
			}
			if !reply.Found {
				emit(map[string]any{"event": "error", "message": "no label for '" + id + "'"})
				continue
			}
			lines = append(lines, fmt.Sprintf("%s\t%s\t%d\t%s\n", reply.ID, reply.Label, reply.Length, reply.Type))
		}
		if err := os.WriteFile(out, []byte(strings.Join(lines, "")), 0644); err != nil {
			os.Exit(6)
		}
		emit(map[string]any{"event": "done", "success": true})
	default:
		os.Exit(2)
	}
}
