package report

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"

	"github.com/nsolab/nso-tools/cmd/nso-stress/internal/metrics"
)

// Export is the file form of a run's outcome.
type Export struct {
	Tool      string            `json:"tool"`
	Version   string            `json:"version"`
	Host      string            `json:"host"`
	Summaries []metrics.Summary `json:"summaries"`
}

func WriteJSON(path string, export Export) error {
	out, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshaling report")
	}
	if err := os.WriteFile(path, append(out, '\n'), 0o644); err != nil {
		return errors.Wrapf(err, "writing report to %s", path)
	}
	return nil
}
