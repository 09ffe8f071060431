package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadRunRequest(t *testing.T) {
	path := writeTempFile(t, "run.json", `{
		"binary_operators": ["+", "*"],
		"unary_operators": ["cos"],
		"max_size": 25,
		"constraints": [{"outer": "cos", "inner": "cos", "max_count": 1}],
		"complexity_weights": {"cos": 3},
		"parsimony": 0.01,
		"populations": 2,
		"iterations": 12,
		"time_limit_ms": 1500,
		"batch_timeout_ms": 200,
		"seed": 9,
		"record_lineage": true
	}`)

	req, err := loadRunRequest(path)
	if err != nil {
		t.Fatalf("load run request: %v", err)
	}
	if len(req.BinaryOperators) != 2 || req.UnaryOperators[0] != "cos" {
		t.Fatalf("operators lost: %v %v", req.BinaryOperators, req.UnaryOperators)
	}
	if req.MaxSize != 25 || req.Populations != 2 || req.Iterations != 12 || req.Seed != 9 {
		t.Fatalf("fields lost: %+v", req)
	}
	if len(req.Constraints) != 1 || req.Constraints[0].MaxCount != 1 {
		t.Fatalf("constraints lost: %v", req.Constraints)
	}
	if req.ComplexityWeights["cos"] != 3 {
		t.Fatalf("weights lost: %v", req.ComplexityWeights)
	}
	if req.TimeLimit != 1500*time.Millisecond || req.BatchTimeout != 200*time.Millisecond {
		t.Fatalf("durations wrong: %v %v", req.TimeLimit, req.BatchTimeout)
	}
	if !req.RecordLineage {
		t.Fatal("record_lineage lost")
	}
}

func TestLoadRunRequestErrors(t *testing.T) {
	if _, err := loadRunRequest(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
	path := writeTempFile(t, "bad.json", `{"iterations": `)
	if _, err := loadRunRequest(path); err == nil {
		t.Fatal("expected error for malformed json")
	}
}

func TestLoadDatasetCSV(t *testing.T) {
	path := writeTempFile(t, "data.csv", "1,2,3\n4,5,6\n")
	x, y, err := loadDatasetCSV(path)
	if err != nil {
		t.Fatalf("load dataset: %v", err)
	}
	if len(x) != 2 || len(x[0]) != 2 || x[1][1] != 5 {
		t.Fatalf("features wrong: %v", x)
	}
	if len(y) != 2 || y[0] != 3 || y[1] != 6 {
		t.Fatalf("targets wrong: %v", y)
	}
}

func TestLoadDatasetCSVErrors(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"empty", ""},
		{"single column", "1\n"},
		{"bad feature", "x,2\n"},
		{"bad target", "1,y\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeTempFile(t, "data.csv", tc.content)
			if _, _, err := loadDatasetCSV(path); err == nil {
				t.Fatal("expected parse error")
			}
		})
	}
}
