package output

import (
	"encoding/csv"
	"os"

	"github.com/shii9/SurfaceNio/internal/model"
)

type CSVWriter struct{}

func (CSVWriter) Write(path string, records []model.HostRecord) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	w := csv.NewWriter(f)
	if err := w.Write(Columns); err != nil {
		return err
	}
	for _, rec := range records {
		if err := w.Write(Flatten(rec)); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
