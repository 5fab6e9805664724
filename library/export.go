package library

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"
)

var exportHeader = []string{"id", "title", "author", "genre", "total_copies"}

// WriteItemsCSV serializes the given items as flat tabular text, one row
// per item, in the order given.
func WriteItemsCSV(w io.Writer, items []*Item) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, it := range items {
		row := []string{it.ID, it.Title, it.Author, it.Genre, strconv.Itoa(it.TotalCopies)}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write item %s: %w", it.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportFilename returns the timestamped name used for catalog exports.
func ExportFilename(now time.Time) string {
	return fmt.Sprintf("library_items_export_%s.csv", now.Format("20060102_150405"))
}
