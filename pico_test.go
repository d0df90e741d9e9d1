package pico

import (
	"bytes"
	"compress/gzip"
	"compress/zlib"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSeparatorHint(t *testing.T) {
	type expectation struct {
		Line  string
		Delim rune
		OK    bool
	}

	expectations := []expectation{
		{"sep=,", ',', true},
		{"sep=;\r", ';', true},
		{"\ufeffsep=,", ',', true},
		{"SEP=,", ',', true},
		{`"sep=,"`, 0, false},
		{"sep=\t", '\t', true},
		{"Well,Sample name,Group", 0, false},
		{"", 0, false},
	}

	for _, v := range expectations {
		delim, ok := SeparatorHint(v.Line)
		if ok != v.OK || delim != v.Delim {
			t.Fatalf("Expected %+v, got %q %v", v, delim, ok)
		}
	}
}

func TestDetermineDelimiter(t *testing.T) {
	tsv := "a\tb\tc\n1\t2\t3\n4\t5\t6\n"
	if d := DetermineDelimiter(strings.NewReader(tsv)); d != '\t' {
		t.Fatalf("Expected tab, got %q", d)
	}

	csv := "a,b,c\n1,2,3\n4,5,6\n"
	if d := DetermineDelimiter(strings.NewReader(csv)); d != ',' {
		t.Fatalf("Expected comma, got %q", d)
	}
}

func TestDetectDataType(t *testing.T) {
	var gz bytes.Buffer
	gw := gzip.NewWriter(&gz)
	gw.Write([]byte("Well,Group\n"))
	gw.Close()

	type expectation struct {
		Name string
		Data []byte
		Type DataType
	}

	expectations := []expectation{
		{"gzip", gz.Bytes(), DataTypeGzip},
		{"zip", []byte{0x50, 0x4b, 0x03, 0x04, 0x14, 0x00}, DataTypeZip},
		{"xz", []byte{0xfd, 0x37, 0x7a, 0x58, 0x5a, 0x00, 0x00}, DataTypeXZ},
		{"bzip2", []byte("BZh91AY"), DataTypeBZip2},
		{"plain", []byte("Well,Group\n"), DataTypeNoCompression},
		{"short", []byte("W"), DataTypeNoCompression},
		{"empty", nil, DataTypeNoCompression},
	}

	for _, v := range expectations {
		got, err := DetectDataType(bytes.NewReader(v.Data))
		if err != nil {
			t.Fatalf("%s: %v", v.Name, err)
		}
		if got != v.Type {
			t.Fatalf("%s: expected %s, got %s", v.Name, v.Type, got)
		}
	}
}

func TestOpenDecompresses(t *testing.T) {
	dir := t.TempDir()
	content := "sep=,\nWell,Group\nA1,++\n"

	var gz bytes.Buffer
	gw := gzip.NewWriter(&gz)
	gw.Write([]byte(content))
	gw.Close()

	var zl bytes.Buffer
	zw := zlib.NewWriter(&zl)
	zw.Write([]byte(content))
	zw.Close()

	files := map[string][]byte{
		"plain.csv":     []byte(content),
		"export.csv.gz": gz.Bytes(),
		"export.csv.z":  zl.Bytes(),
	}

	for name, data := range files {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, data, 0644); err != nil {
			t.Fatal(err)
		}

		rc, err := Open(context.Background(), path, nil)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		got, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if string(got) != content {
			t.Fatalf("%s: expected %q, got %q", name, content, got)
		}
	}
}

func TestListInputs(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"run1.csv", "run2.CSV.gz", "notes.md", "run3.tsv", "run4.xls", "run5.xls.gz"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "sub.csv"), 0755); err != nil {
		t.Fatal(err)
	}

	got, err := ListInputs(context.Background(), []string{dir, " ", filepath.Join(dir, "notes.md"), "gs://bucket/run.csv"}, nil)
	if err != nil {
		t.Fatal(err)
	}

	want := []string{
		filepath.Join(dir, "run1.csv"),
		filepath.Join(dir, "run2.CSV.gz"),
		filepath.Join(dir, "run3.tsv"),
		filepath.Join(dir, "run4.xls"),
		filepath.Join(dir, "notes.md"),
		"gs://bucket/run.csv",
	}
	if len(got) != len(want) {
		t.Fatalf("Expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Expected %v, got %v", want, got)
		}
	}

	if _, err := ListInputs(context.Background(), []string{filepath.Join(dir, "missing.csv")}, nil); err == nil {
		t.Fatalf("Expected an error for a missing input")
	}
}

func TestSplitGSPath(t *testing.T) {
	bucket, object, err := SplitGSPath("gs://my-bucket/runs/2022/export.csv")
	if err != nil {
		t.Fatal(err)
	}
	if bucket != "my-bucket" || object != "runs/2022/export.csv" {
		t.Fatalf("Unexpected split %q %q", bucket, object)
	}

	if _, _, err := SplitGSPath("/local/export.csv"); err == nil {
		t.Fatalf("Expected an error for a local path")
	}
}
