// Package artifact reads and writes the tabular panel artifacts. Writers
// stage to a temporary file and rename into place, so an aborted run never
// leaves a partial artifact at the final path.
package artifact

import (
	"os"
	"path/filepath"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"

	"github.com/troy3977-blip/mcr-ai-insights/internal/model"
)

// Artifact file names within the processed directory.
const (
	BasePanelName   = "panel.csv"
	ModelPanelName  = "panel_model.csv"
	StablePanelName = "panel_stable.csv"
)

// WriteBasePanel writes the audited base panel.
func WriteBasePanel(path string, records []model.PanelRecord) error {
	data, err := csvutil.Marshal(records)
	if err != nil {
		return eris.Wrap(err, "artifact: marshal base panel")
	}
	return writeAtomic(path, data)
}

// WriteModelPanel writes a weighted panel artifact (model or stable).
func WriteModelPanel(path string, records []model.ModelRecord) error {
	data, err := csvutil.Marshal(records)
	if err != nil {
		return eris.Wrap(err, "artifact: marshal model panel")
	}
	return writeAtomic(path, data)
}

// ReadBasePanel reads a base panel artifact.
func ReadBasePanel(path string) ([]model.PanelRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "artifact: read %s", path)
	}
	var records []model.PanelRecord
	if err := csvutil.Unmarshal(data, &records); err != nil {
		return nil, eris.Wrapf(err, "artifact: unmarshal %s", path)
	}
	return records, nil
}

// ReadModelPanel reads a weighted panel artifact.
func ReadModelPanel(path string) ([]model.ModelRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "artifact: read %s", path)
	}
	var records []model.ModelRecord
	if err := csvutil.Unmarshal(data, &records); err != nil {
		return nil, eris.Wrapf(err, "artifact: unmarshal %s", path)
	}
	return records, nil
}

// writeAtomic stages data next to path and promotes it with a rename.
func writeAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrap(err, "artifact: create dir")
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return eris.Wrap(err, "artifact: write staged file")
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return eris.Wrap(err, "artifact: promote staged file")
	}
	return nil
}
