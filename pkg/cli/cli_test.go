package cli_test

import (
	"context"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/complytrack/pkg/cli"
)

func TestRun_Help(t *testing.T) {
	gt.NoError(t, cli.Run(context.Background(), []string{"complytrack", "--help"}, "test"))
}

func TestRun_InvalidLogFormat(t *testing.T) {
	err := cli.Run(context.Background(), []string{"complytrack", "--log-format", "xml", "validate", "--seed-catalog", "x.toml"}, "test")
	gt.Error(t, err)
}
