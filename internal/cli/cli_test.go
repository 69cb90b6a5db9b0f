package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/controlgap/internal/model"
)

var testDataset = filepath.Join("..", "store", "testdata", "dataset.yaml")

// run executes the root command with fresh flag state
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())

	for _, name := range []string{"config", "verbose", "json", "dataset", "store", "db"} {
		f := rootCmd.PersistentFlags().Lookup(name)
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	idsFile, gapTitle, selectIDs, selectAll, asDraft = "", "", nil, false, false

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestCoverageCommand_JSON(t *testing.T) {
	out, err := run(t, "coverage", "03.01.01", "--dataset", testDataset, "--json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var report coverageReport
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("failed to decode output: %v\n%s", err, out)
	}
	if len(report.Results) != 1 || report.Results[0].ControlID != "03.01.01" {
		t.Errorf("unexpected results: %+v", report.Results)
	}
}

func TestCoverageCommand_UnknownControlFails(t *testing.T) {
	_, err := run(t, "coverage", "03.01.01", "99.99.99", "--dataset", testDataset)
	if err == nil || !strings.Contains(err.Error(), "1 of 2 controls failed") {
		t.Errorf("expected failure count error, got %v", err)
	}
}

func TestCoverageCommand_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ids.txt")
	if err := os.WriteFile(path, []byte("# access control\n03.01.01\n\n03.05.03\n"), 0644); err != nil {
		t.Fatalf("failed to write ids: %v", err)
	}

	out, err := run(t, "coverage", "--file", path, "--dataset", testDataset)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "03.01.01") || !strings.Contains(out, "03.05.03") {
		t.Errorf("expected both controls in table, got:\n%s", out)
	}
}

func TestCoverageCommand_ArgsAndFileOverlap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ids.txt")
	if err := os.WriteFile(path, []byte("03.01.01\n03.05.03\n"), 0644); err != nil {
		t.Fatalf("failed to write ids: %v", err)
	}

	out, err := run(t, "coverage", "03.01.01", "--file", path, "--dataset", testDataset, "--json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var report coverageReport
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("failed to decode output: %v\n%s", err, out)
	}
	if len(report.Results) != 2 {
		t.Errorf("expected each control once, got %d results", len(report.Results))
	}
}

func TestDescribeCommand(t *testing.T) {
	out, err := run(t, "describe", "03.01.01", "--dataset", testDataset,
		"--select", "procedure:s1", "--title", "Accounts")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "Control 03.01.01 - Accounts: identified gaps\n\nProcedures:\n- Account Provisioning Procedure\n"
	if out != want {
		t.Errorf("unexpected output:\n%q\nwant:\n%q", out, want)
	}
}

func TestDescribeCommand_Draft(t *testing.T) {
	out, err := run(t, "describe", "03.01.01", "--dataset", testDataset, "--all", "--draft", "--json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var draft model.RemediationDraft
	if err := json.Unmarshal([]byte(out), &draft); err != nil {
		t.Fatalf("failed to decode draft: %v", err)
	}
	if draft.ControlID != "03.01.01" || len(draft.GapItemIDs) == 0 {
		t.Errorf("unexpected draft: %+v", draft)
	}
}

func TestFamilyCommand_Unknown(t *testing.T) {
	if _, err := run(t, "family", "ZZ", "--dataset", testDataset); err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestImportThenScore(t *testing.T) {
	db := filepath.Join(t.TempDir(), "compliance.db")
	if _, err := run(t, "import", testDataset, "--db", db); err != nil {
		t.Fatalf("import failed: %v", err)
	}

	out, err := run(t, "score", "--store", "sqlite", "--db", db, "--json")
	if err != nil {
		t.Fatalf("score failed: %v", err)
	}
	var result model.ComplianceScoreResult
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("failed to decode score: %v", err)
	}
	if result.MaxScore != 13 {
		t.Errorf("expected max score 13, got %d", result.MaxScore)
	}
}

func TestWriteDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "controlgap", "config.yaml")
	if err := writeDefaultConfig(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read config: %v", err)
	}
	var cfg model.Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		t.Fatalf("written config is not valid YAML: %v", err)
	}
	if cfg.Scoring.MinScore != -203 || cfg.Coverage.Weights.Technical != 0.4 {
		t.Errorf("unexpected defaults: %+v", cfg.Scoring)
	}
	if cfg.Concurrency.Workers != 0 {
		t.Errorf("expected workers written as 0 (auto), got %d", cfg.Concurrency.Workers)
	}

	if err := writeDefaultConfig(path); err == nil {
		t.Error("expected error when config already exists")
	}
}

func TestAllGapIDs(t *testing.T) {
	set := model.GapSet{
		MissingPolicies:       []model.GapItem{{ID: "policy:p1"}},
		MissingSettings:       []model.GapItem{{ID: "setting:s1"}},
		OperationalActivities: []model.GapItem{{ID: "activity:0"}},
	}
	ids := allGapIDs(set)
	if strings.Join(ids, ",") != "policy:p1,setting:s1,activity:0" {
		t.Errorf("unexpected ids: %v", ids)
	}
}
