package types

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/samber/lo"
)

// Column names of the result table
const (
	ColumnImage       = "image"
	ColumnCanopyCover = "canopy_cover"
	ColumnDateTime    = "date_time"
	ColumnLatitude    = "latitude"
	ColumnLongitude   = "longitude"
	ColumnMask        = "mask"
)

var columnOrder = []string{
	ColumnImage,
	ColumnCanopyCover,
	ColumnDateTime,
	ColumnLatitude,
	ColumnLongitude,
	ColumnMask,
}

// Table is the ordered set of per-image records of a batch
type Table struct {
	rows []Record
}

// NewTable builds a table from records
func NewTable(records []Record) *Table {
	rows := make([]Record, len(records))
	copy(rows, records)
	return &Table{rows: rows}
}

// Len returns the number of rows
func (t *Table) Len() int {
	return len(t.rows)
}

// Rows returns the records in table order
func (t *Table) Rows() []Record {
	return t.rows
}

// Row returns the i-th record
func (t *Table) Row(i int) Record {
	return t.rows[i]
}

// Columns returns the union of the columns present in any row
func (t *Table) Columns() []string {
	if len(t.rows) == 0 {
		return nil
	}
	present := lo.Uniq(lo.FlatMap(t.rows, func(r Record, _ int) []string {
		return r.columns()
	}))
	return lo.Filter(columnOrder, func(c string, _ int) bool {
		return lo.Contains(present, c)
	})
}

// Maps returns each row keyed by column name. Optional fields a row does not
// have are absent from its map.
func (t *Table) Maps() []map[string]any {
	return lo.Map(t.rows, func(r Record, _ int) map[string]any {
		return r.Values()
	})
}

// SortByImage orders rows by image path
func (t *Table) SortByImage() {
	sort.SliceStable(t.rows, func(i, j int) bool {
		return t.rows[i].Image < t.rows[j].Image
	})
}

// WriteCSV writes the scalar columns as CSV with a header row. The mask
// column is never written.
func (t *Table) WriteCSV(w io.Writer) error {
	cols := lo.Without(t.Columns(), ColumnMask)
	if len(cols) == 0 {
		cols = []string{ColumnImage, ColumnCanopyCover}
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(cols); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	for _, r := range t.rows {
		values := r.Values()
		line := make([]string, len(cols))
		for i, c := range cols {
			v, ok := values[c]
			if !ok {
				continue
			}
			line[i] = formatCell(v)
		}
		if err := cw.Write(line); err != nil {
			return fmt.Errorf("failed to write csv row for %s: %w", r.Image, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// Values returns the record keyed by column name
func (r Record) Values() map[string]any {
	values := map[string]any{
		ColumnImage:       r.Image,
		ColumnCanopyCover: r.CanopyCover,
	}
	if r.DateTime != nil {
		values[ColumnDateTime] = *r.DateTime
	}
	if r.Location != nil {
		values[ColumnLatitude] = r.Location.Latitude
		values[ColumnLongitude] = r.Location.Longitude
	}
	if r.Mask != nil {
		values[ColumnMask] = r.Mask.Grid()
	}
	return values
}

func (r Record) columns() []string {
	cols := []string{ColumnImage, ColumnCanopyCover}
	if r.DateTime != nil {
		cols = append(cols, ColumnDateTime)
	}
	if r.Location != nil {
		cols = append(cols, ColumnLatitude, ColumnLongitude)
	}
	if r.Mask != nil {
		cols = append(cols, ColumnMask)
	}
	return cols
}

func formatCell(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprint(val)
	}
}
