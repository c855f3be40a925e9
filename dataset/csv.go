package dataset

import (
	"encoding/csv"
	"os"

	"github.com/mlinsights/tabular/pkg/errors"
)

// ReadCSV loads a table from a CSV file. The first record is the header.
func ReadCSV(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "dataset: open %s", path)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, errors.Wrapf(err, "dataset: parse %s", path)
	}
	if len(records) == 0 {
		return nil, errors.Wrapf(errors.ErrEmptyData, "dataset: %s", path)
	}

	t := &Table{Columns: records[0], Rows: records[1:]}
	return t, nil
}

// WriteCSV stores the table as a CSV file with a header row.
func (t *Table) WriteCSV(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "dataset: create %s", path)
	}
	defer f.Close()

	writer := csv.NewWriter(f)
	if err := writer.Write(t.Columns); err != nil {
		return errors.Wrapf(err, "dataset: write header to %s", path)
	}
	for _, row := range t.Rows {
		if err := writer.Write(row); err != nil {
			return errors.Wrapf(err, "dataset: write row to %s", path)
		}
	}
	writer.Flush()
	return errors.WithStack(writer.Error())
}
