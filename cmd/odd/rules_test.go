package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"odd-hq/decisioning/pkg/cli"
)

func setRulesFlags(t *testing.T, schema bool, output string) {
	t.Helper()
	prev := rulesFlags
	rulesFlags.schema = schema
	rulesFlags.maxDepth = 32
	rulesFlags.out = ""
	rulesFlags.output = output
	t.Cleanup(func() { rulesFlags = prev })
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestRunRulesValidate(t *testing.T) {
	badMatcher := writeFile(t, "bad.json", `{"rules":[{"condition":{"type":"matcher","definition":{"key":"a","matcher":"regex","values":["x"]}},"consequences":[]}]}`)
	notJSON := writeFile(t, "broken.json", `{"rules":`)

	tests := []struct {
		name    string
		schema  bool
		files   []string
		wantErr bool
		want    []string
	}{
		{
			name:   "valid",
			schema: true,
			files:  []string{"testdata/rules.json"},
			want:   []string{"testdata/rules.json: ok", "provider TGT"},
		},
		{
			name:    "invalid json",
			schema:  true,
			files:   []string{"testdata/rules.json", notJSON},
			wantErr: true,
			want:    []string{"testdata/rules.json: ok", notJSON + ": invalid"},
		},
		{
			name:    "schema violation",
			schema:  true,
			files:   []string{badMatcher},
			wantErr: true,
			want:    []string{badMatcher + ": invalid"},
		},
		{
			name:    "missing file",
			schema:  false,
			files:   []string{"testdata/missing.json"},
			wantErr: true,
			want:    []string{"testdata/missing.json: invalid"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRulesFlags(t, tt.schema, "text")
			cmd, out := newTestCommand(t, "")

			err := runRulesValidate(cmd, tt.files)
			if (err != nil) != tt.wantErr {
				t.Fatalf("runRulesValidate() error = %v, wantErr %v", err, tt.wantErr)
			}
			for _, want := range tt.want {
				if !strings.Contains(out.String(), want) {
					t.Errorf("output = %q, want %q", out.String(), want)
				}
			}
		})
	}
}

func TestRunRulesValidate_JSON(t *testing.T) {
	setRulesFlags(t, true, "json")
	cmd, out := newTestCommand(t, "")

	if err := runRulesValidate(cmd, []string{"testdata/rules.json"}); err != nil {
		t.Fatalf("runRulesValidate() error = %v", err)
	}

	var reports []rulesReport
	if err := json.Unmarshal(out.Bytes(), &reports); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if len(reports) != 1 || !reports[0].Valid || reports[0].Rules == 0 {
		t.Errorf("reports = %+v, want one valid report with rules", reports)
	}
}

func TestRunRulesFetch_RequiresOrg(t *testing.T) {
	setRulesFlags(t, true, "text")
	cmd, _ := newTestCommand(t, "")
	t.Setenv("ODD_CLIENT_ORG_ID", "")

	err := runRulesFetch(cmd, nil)
	if cli.ExitCode(err) != cli.ExitConfig {
		t.Errorf("runRulesFetch() error = %v, want config error", err)
	}
}
