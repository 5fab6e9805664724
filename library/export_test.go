package library

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
)

func TestWriteItemsCSV(t *testing.T) {
	items := []*Item{
		{ID: "B1", Title: "Dune", Author: "Frank Herbert", Genre: "Sci-Fi", TotalCopies: 2},
		{ID: "B2", Title: "Murder, She Wrote", Author: "Jessica Fletcher", Genre: "Mystery", TotalCopies: 1},
		{ID: "B3", Title: "1984", Author: "George Orwell", Genre: "Fiction", TotalCopies: 4},
	}

	var buf bytes.Buffer
	if err := WriteItemsCSV(&buf, items); err != nil {
		t.Fatalf("write csv: %v", err)
	}

	g := goldie.New(t)
	g.Assert(t, "items_export", buf.Bytes())
}

func TestWriteItemsCSVEmptyCatalog(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteItemsCSV(&buf, nil); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	if got := buf.String(); got != "id,title,author,genre,total_copies\n" {
		t.Fatalf("empty export must be header only, got %q", got)
	}
}

func TestExportFilename(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 30, 45, 0, time.UTC)
	name := ExportFilename(now)
	if name != "library_items_export_20260301_123045.csv" {
		t.Fatalf("unexpected export name %q", name)
	}
	if !strings.HasSuffix(name, ".csv") {
		t.Fatalf("export name must end in .csv, got %q", name)
	}
}
