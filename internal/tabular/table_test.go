package tabular

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestRequireColumns(t *testing.T) {
	tbl := &Table{
		Name:    "scores",
		Columns: []string{"filename", "SA_score"},
	}

	if err := tbl.RequireColumns("filename", "SA_score"); err != nil {
		t.Errorf("expected columns present, got %v", err)
	}

	err := tbl.RequireColumns("SCScore")
	if err == nil {
		t.Fatal("expected error for missing column")
	}
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError, got %T", err)
	}
	if cfgErr.Table != "scores" || cfgErr.Column != "SCScore" {
		t.Errorf("error names wrong table/column: %v", cfgErr)
	}
}

func TestFloat(t *testing.T) {
	tbl := &Table{
		Name:    "vina",
		Columns: []string{"ligand", "affinity_kcal/mol"},
		Rows: []Record{
			{"ligand": "7", "affinity_kcal/mol": " -8.2 "},
			{"ligand": "8", "affinity_kcal/mol": "not-a-number"},
		},
	}

	v, err := tbl.Float(0, "affinity_kcal/mol", "ligand")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != -8.2 {
		t.Errorf("expected -8.2, got %f", v)
	}

	_, err = tbl.Float(1, "affinity_kcal/mol", "ligand")
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
	if parseErr.RowID != "8" {
		t.Errorf("expected row id 8, got %q", parseErr.RowID)
	}
	if parseErr.Column != "affinity_kcal/mol" {
		t.Errorf("expected affinity column in error, got %q", parseErr.Column)
	}
}

func TestReadCSVSkipsNonDelimitedLines(t *testing.T) {
	input := "Vina docking completed in 42s\n" +
		"ligand,affinity_kcal/mol\n" +
		"WARNING: some free text\n" +
		"7,-8.2\n" +
		"12,-7.1\n"

	tbl, err := ReadCSV(strings.NewReader(input), "vina_results")
	if err != nil {
		t.Fatalf("ReadCSV failed: %v", err)
	}
	if len(tbl.Columns) != 2 {
		t.Fatalf("expected 2 columns, got %v", tbl.Columns)
	}
	if tbl.Len() != 2 {
		t.Fatalf("expected 2 rows, got %d", tbl.Len())
	}
	if tbl.Rows[0]["ligand"] != "7" || tbl.Rows[1]["affinity_kcal/mol"] != "-7.1" {
		t.Errorf("unexpected rows: %v", tbl.Rows)
	}
}

func TestReadCSVEmptyInput(t *testing.T) {
	tbl, err := ReadCSV(strings.NewReader(""), "empty")
	if err != nil {
		t.Fatalf("ReadCSV failed: %v", err)
	}
	if tbl.Len() != 0 {
		t.Errorf("expected 0 rows, got %d", tbl.Len())
	}
}

func TestWriteCSVPreservesHeaderOrder(t *testing.T) {
	tbl := &Table{
		Name:    "out",
		Columns: []string{"filename", "SA_score", "SCScore"},
		Rows: []Record{
			{"filename": "7.sdf", "SA_score": "2.1", "SCScore": "3.4"},
			{"filename": "9.sdf", "SA_score": "4.0"},
		},
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, tbl); err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}
	want := "filename,SA_score,SCScore\n7.sdf,2.1,3.4\n9.sdf,4.0,\n"
	if buf.String() != want {
		t.Errorf("expected %q, got %q", want, buf.String())
	}
}

func TestCloneIsIndependent(t *testing.T) {
	tbl := &Table{
		Name:    "orig",
		Columns: []string{"a"},
		Rows:    []Record{{"a": "1"}},
	}
	c := tbl.Clone()
	c.Rows[0]["a"] = "2"
	if tbl.Rows[0]["a"] != "1" {
		t.Error("clone mutation leaked into original")
	}
}
