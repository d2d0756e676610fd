package cli_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/complytrack/pkg/cli"
)

func TestRun_ValidateCommand_ValidCatalog(t *testing.T) {
	tmpDir := t.TempDir()
	catalogPath := filepath.Join(tmpDir, "catalog.toml")
	content := `
[[entry]]
name = "vendor-risk"
keywords = ["vendor"]
tasks = [
  { label = "Collect questionnaire", weight = 50 },
  { label = "Review SOC2 report", weight = 50 },
]
`
	err := os.WriteFile(catalogPath, []byte(content), 0o600)
	gt.NoError(t, err).Required()

	err = cli.Run(context.Background(), []string{"complytrack", "validate", "--seed-catalog", catalogPath, "--title", "New vendor"}, "test")
	gt.NoError(t, err)
}

func TestRun_ValidateCommand_InvalidCatalog(t *testing.T) {
	tmpDir := t.TempDir()
	catalogPath := filepath.Join(tmpDir, "catalog.toml")

	// Invalid: weights sum to 90
	content := `
[[entry]]
name = "vendor-risk"
keywords = ["vendor"]
tasks = [
  { label = "Collect questionnaire", weight = 40 },
  { label = "Review SOC2 report", weight = 50 },
]
`
	err := os.WriteFile(catalogPath, []byte(content), 0o600)
	gt.NoError(t, err).Required()

	err = cli.Run(context.Background(), []string{"complytrack", "validate", "--seed-catalog", catalogPath}, "test")
	gt.Error(t, err)
}

func TestRun_ValidateCommand_MissingFile(t *testing.T) {
	err := cli.Run(context.Background(), []string{"complytrack", "validate", "--seed-catalog", filepath.Join(t.TempDir(), "none.toml")}, "test")
	gt.Error(t, err)
}
