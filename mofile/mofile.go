// Package mofile reads multiple-occupancy exports of multiplexed dPCR runs
// into partition rows.
package mofile

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/carbocation/pfx"
	"github.com/carbocation/pico"
	"github.com/carbocation/pico/partition"
	"github.com/extrame/xls"
	"github.com/gocarina/gocsv"
	"golang.org/x/net/html/charset"
)

// record is one decoded export line. Its csv tags are the names that layout
// columns are renamed to before decoding.
type record struct {
	Well            string  `csv:"well"`
	SampleName      string  `csv:"sample_name"`
	Group           string  `csv:"group"`
	PlateType       string  `csv:"plate_type"`
	Pattern         string  `csv:"group_pattern"`
	Count           int64   `csv:"count"`
	ValidPartitions int64   `csv:"valid_partitions"`
	VolumePerWell   float64 `csv:"volume_per_well"`
	Categories      string  `csv:"category_label"`
	TargetNames     string  `csv:"target_names"`
}

type MOParser struct {
	Layout Layout

	// Encoding is a charset label such as "utf-8" or "windows-1252". Empty
	// means utf-8.
	Encoding string

	// Verbose logs the detected delimiter of each input.
	Verbose bool
}

func New(layout string) (*MOParser, error) {
	l, exists := Layouts[layout]
	if !exists {
		return nil, fmt.Errorf("Layout %s is not found. Valid layout names include: %s", layout, LayoutNames())
	}

	return NewWithLayout(l), nil
}

func NewWithLayout(layout Layout) *MOParser {
	return &MOParser{Layout: layout}
}

// PartitionOptions are the grouping options matching the layout. Exports
// omit patterns that no partition showed, so absent patterns count as zero.
func (p *MOParser) PartitionOptions() partition.Options {
	return partition.Options{
		CategorySeparator: p.Layout.CategorySeparator,
		TargetSeparator:   p.Layout.TargetSeparator,
		FillMissing:       true,
	}
}

// Parse reads one export.
func (p *MOParser) Parse(r io.Reader) ([]partition.Row, error) {
	if p.Encoding != "" && !strings.EqualFold(p.Encoding, "utf-8") && !strings.EqualFold(p.Encoding, "utf8") {
		decoded, err := charset.NewReaderLabel(p.Encoding, r)
		if err != nil {
			return nil, pfx.Err(fmt.Errorf("encoding %q: %w", p.Encoding, err))
		}
		r = decoded
	}

	body, err := io.ReadAll(r)
	if err != nil {
		return nil, pfx.Err(err)
	}

	// Skip a "sep=," preamble, which also settles the delimiter.
	delim, hinted := rune(0), false
	if nl := bytes.IndexByte(body, '\n'); nl >= 0 {
		if delim, hinted = pico.SeparatorHint(string(body[:nl])); hinted {
			body = body[nl+1:]
		}
	}
	if !hinted {
		delim = pico.DetermineDelimiter(bytes.NewReader(body))
	}
	if p.Verbose {
		log.Printf("Determined export delimiter to be %q\n", string(delim))
	}

	cr := csv.NewReader(bufio.NewReader(bytes.NewReader(body)))
	cr.Comma = delim
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	return p.parseRecords(cr)
}

// ParseTable reads an export that has already been split into cells, such
// as a spreadsheet sheet. A leading "sep=" row is skipped.
func (p *MOParser) ParseTable(table [][]string) ([]partition.Row, error) {
	if len(table) > 0 && len(table[0]) > 0 {
		if _, hinted := pico.SeparatorHint(table[0][0]); hinted {
			table = table[1:]
		}
	}

	return p.parseRecords(&tableReader{table: table})
}

// ParseXLS reads the first sheet of a legacy Excel workbook.
func (p *MOParser) ParseXLS(rs io.ReadSeeker) ([]partition.Row, error) {
	charsetLabel := p.Encoding
	if charsetLabel == "" {
		charsetLabel = "utf-8"
	}

	wb, err := xls.OpenReader(rs, charsetLabel)
	if err != nil {
		return nil, pfx.Err(err)
	}
	if wb.NumSheets() < 1 {
		return nil, pfx.Err(fmt.Errorf("workbook has no sheets"))
	}

	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, pfx.Err(fmt.Errorf("sheet 0 could not be read"))
	}

	table := make([][]string, 0, int(sheet.MaxRow)+1)
	for rowID := 0; rowID <= int(sheet.MaxRow); rowID++ {
		row := sheet.Row(rowID)
		if row == nil {
			continue
		}
		cells := make([]string, 0, row.LastCol()+1)
		for colID := 0; colID <= row.LastCol(); colID++ {
			cells = append(cells, row.Col(colID))
		}
		table = append(table, cells)
	}

	return p.ParseTable(table)
}

func (p *MOParser) parseRecords(src rowReader) ([]partition.Row, error) {
	records := []*record{}
	if err := gocsv.UnmarshalCSV(&renamingReader{src: src, columns: p.Layout.columns()}, &records); err != nil {
		return nil, pfx.Err(err)
	}

	rows := make([]partition.Row, 0, len(records))
	for i, rec := range records {
		pattern, err := partition.ParsePattern(rec.Pattern)
		if err != nil {
			// Line numbers count the header as line 1.
			return nil, pfx.Err(fmt.Errorf("line %d (well %s): %w", i+2, rec.Well, err))
		}

		rows = append(rows, partition.Row{
			Well:            strings.TrimSpace(rec.Well),
			SampleName:      rec.SampleName,
			Group:           rec.Group,
			PlateType:       rec.PlateType,
			Pattern:         pattern,
			Count:           rec.Count,
			ValidPartitions: rec.ValidPartitions,
			VolumePerWell:   rec.VolumePerWell,
			Categories:      rec.Categories,
			TargetNames:     rec.TargetNames,
		})
	}

	return rows, nil
}

// ReadFile opens a local or gs:// export, decompressing it if needed.
func (p *MOParser) ReadFile(ctx context.Context, path string, client *storage.Client) ([]partition.Row, error) {
	if strings.EqualFold(filepath.Ext(path), ".xls") {
		rs, _, err := pico.MaybeOpenSeekerFromGoogleStorage(ctx, path, client)
		if err != nil {
			return nil, err
		}
		defer rs.Close()

		rows, err := p.ParseXLS(rs)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return rows, nil
	}

	f, err := pico.Open(ctx, path, client)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, err := p.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return rows, nil
}

// ReadFiles concatenates several exports into one table. When the same well
// identifier occurs in more than one file, it is qualified as "file:well" in
// every file where it occurs.
func (p *MOParser) ReadFiles(ctx context.Context, paths []string, client *storage.Client) ([]partition.Row, error) {
	perFile := make([][]partition.Row, len(paths))
	filesPerWell := make(map[string]map[int]struct{})

	for i, path := range paths {
		rows, err := p.ReadFile(ctx, path, client)
		if err != nil {
			return nil, err
		}
		perFile[i] = rows

		for _, row := range rows {
			files, exists := filesPerWell[row.Well]
			if !exists {
				files = make(map[int]struct{})
				filesPerWell[row.Well] = files
			}
			files[i] = struct{}{}
		}
	}

	labels := fileLabels(paths)
	out := make([]partition.Row, 0)
	for i, rows := range perFile {
		for _, row := range rows {
			if len(filesPerWell[row.Well]) > 1 {
				row.Well = labels[i] + ":" + row.Well
			}
			out = append(out, row)
		}
	}

	return out, nil
}

// fileLabels names each input by its base name without extensions. Inputs
// whose names collide are named by the shortest trailing part of their
// paths that tells them apart, e.g. "day1/run" and "day2/run". The same
// path given twice is told apart by its position, e.g. "run#2".
func fileLabels(paths []string) []string {
	parts := make([][]string, len(paths))
	depth := make([]int, len(paths))
	for i, path := range paths {
		clean := filepath.ToSlash(filepath.Clean(strings.TrimPrefix(path, "gs://")))
		for _, part := range strings.Split(clean, "/") {
			if part != "" && part != "." {
				parts[i] = append(parts[i], part)
			}
		}
		if len(parts[i]) == 0 {
			parts[i] = []string{path}
		}
		parts[i][len(parts[i])-1] = fileBase(parts[i][len(parts[i])-1])
		depth[i] = 1
	}

	label := func(i int) string {
		return strings.Join(parts[i][len(parts[i])-depth[i]:], "/")
	}

	for {
		byLabel := make(map[string][]int)
		for i := range paths {
			byLabel[label(i)] = append(byLabel[label(i)], i)
		}

		deeper := false
		for _, idx := range byLabel {
			if len(idx) < 2 {
				continue
			}
			for _, i := range idx {
				if depth[i] < len(parts[i]) {
					depth[i]++
					deeper = true
				}
			}
		}
		if !deeper {
			break
		}
	}

	out := make([]string, len(paths))
	seen := make(map[string]int)
	for i := range paths {
		out[i] = label(i)
		seen[out[i]]++
		if seen[out[i]] > 1 {
			out[i] += "#" + strconv.Itoa(i+1)
		}
	}

	return out
}

func fileBase(path string) string {
	base := filepath.Base(strings.TrimPrefix(path, "gs://"))
	for {
		ext := filepath.Ext(base)
		if ext == "" || ext == base {
			return base
		}
		base = strings.TrimSuffix(base, ext)
	}
}

type rowReader interface {
	Read() ([]string, error)
}

// tableReader serves pre-split rows one at a time.
type tableReader struct {
	table [][]string
	next  int
}

func (t *tableReader) Read() ([]string, error) {
	if t.next >= len(t.table) {
		return nil, io.EOF
	}
	t.next++

	return t.table[t.next-1], nil
}

// renamingReader renames the header row from layout column names to the
// csv tags of record, and checks that every column is present.
type renamingReader struct {
	src        rowReader
	columns    map[string]string
	headerDone bool
}

func (r *renamingReader) Read() ([]string, error) {
	row, err := r.src.Read()
	if err != nil || r.headerDone {
		return row, err
	}
	r.headerDone = true

	return r.renameHeader(row)
}

func (r *renamingReader) ReadAll() ([][]string, error) {
	out := make([][]string, 0)
	for {
		row, err := r.Read()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
}

func (r *renamingReader) renameHeader(row []string) ([]string, error) {
	found := make(map[string]struct{}, len(r.columns))
	renamed := make([]string, len(row))
	for i, col := range row {
		col = NormalizeHeader(col)
		if tag, ok := r.columns[col]; ok {
			renamed[i] = tag
			found[tag] = struct{}{}
			continue
		}
		renamed[i] = col
	}

	missing := make([]string, 0)
	for source, tag := range r.columns {
		if _, ok := found[tag]; !ok {
			missing = append(missing, source)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, fmt.Errorf("columns not found in header: %q", missing)
	}

	return renamed, nil
}
