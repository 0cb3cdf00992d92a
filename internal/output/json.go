package output

import (
	"encoding/json"
	"os"

	"github.com/shii9/SurfaceNio/internal/model"
)

type JSONWriter struct{}

func (JSONWriter) Write(path string, records []model.HostRecord) error {
	if records == nil {
		records = []model.HostRecord{}
	}
	b, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(b, '\n'), 0o644)
}
