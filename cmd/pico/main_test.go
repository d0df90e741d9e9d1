package main

import (
	"bufio"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/carbocation/pico/occupancy"
	"github.com/carbocation/pico/store"
	"github.com/stretchr/testify/require"
)

const export = "sep=,\r\n" +
	"Well,Sample name,Reaction Mix name,Plate type,Group,Count categories,Valid partitions,Volume per well [µL],Categories,Target names\r\n" +
	"A1,Sample 1,Mix1,Nanoplate 26K 24-well,++,10,1000,40,Green-Yellow,\"CD3,CD28\"\r\n" +
	"A1,Sample 1,Mix1,Nanoplate 26K 24-well,+-,50,1000,40,Green-Yellow,\"CD3,CD28\"\r\n" +
	"A1,Sample 1,Mix1,Nanoplate 26K 24-well,-+,40,1000,40,Green-Yellow,\"CD3,CD28\"\r\n" +
	"A1,Sample 1,Mix1,Nanoplate 26K 24-well,--,900,1000,40,Green-Yellow,\"CD3,CD28\"\r\n" +
	"A2,NTC,Mix1,Nanoplate 26K 24-well,++,1,1000,40,Green-Yellow,\"CD3,CD28\"\r\n" +
	"A2,NTC,Mix1,Nanoplate 26K 24-well,--,999,1000,40,Green-Yellow,\"CD3,CD28\"\r\n"

func TestRun(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "run1.csv")
	require.NoError(t, os.WriteFile(input, []byte(export), 0644))

	outDir := filepath.Join(dir, "out")
	require.NoError(t, os.Mkdir(outDir, 0755))

	cfg := config{
		inputs:            input,
		output:            outDir,
		format:            "csv",
		layout:            "QIACUITY",
		encoding:          "utf-8",
		workers:           2,
		controls:          "NTC",
		plates:            formatPlates(occupancy.DefaultPlates),
		summaryPath:       filepath.Join(dir, "summary.csv"),
		lambdaSummaryPath: filepath.Join(dir, "lambda.csv"),
		associationPath:   filepath.Join(dir, "association.csv"),
		minLambda:         0.01,
		sqlitePath:        filepath.Join(dir, "pico.db"),
	}
	require.NoError(t, run(context.Background(), cfg))

	processed, err := os.ReadFile(filepath.Join(outDir, "run1_processed.csv"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(processed)), "\n")
	require.Len(t, lines, 2)
	require.True(t, strings.HasPrefix(lines[0], "group,sample_name,well,"))
	require.True(t, strings.HasPrefix(lines[1], "Mix1,Sample 1,A1,1000,40,42,2,GY,CD3,CD28,CD3 & CD28,50,"))
	require.True(t, strings.HasSuffix(lines[1], ",10,8,2,0,0,8,8,true"))

	summary, err := os.ReadFile(cfg.summaryPath)
	require.NoError(t, err)
	require.Contains(t, string(summary), "Mix1,Sample 1,GY,CD3 & CD28,1,8,")

	lambda, err := os.ReadFile(cfg.lambdaSummaryPath)
	require.NoError(t, err)
	require.Len(t, strings.Split(strings.TrimSpace(string(lambda)), "\n"), 3)

	association, err := os.ReadFile(cfg.associationPath)
	require.NoError(t, err)
	assocLines := strings.Split(strings.TrimSpace(string(association)), "\n")
	require.Len(t, assocLines, 2)
	require.True(t, strings.HasPrefix(assocLines[1], "Mix1,Sample 1,A1,GY,CD3 & CD28,10,50,40,"))

	db, err := store.Open(cfg.sqlitePath)
	require.NoError(t, err)
	defer db.Close()
	runs, err := db.Runs(context.Background())
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.Equal(t, input, runs[0].Source)
	require.Equal(t, int64(1), runs[0].NRows)
}

func TestFormatPlates(t *testing.T) {
	require.Equal(t, "8.5K=13,26K=42", formatPlates(occupancy.DefaultPlates))

	plates, err := occupancy.ParsePlates(formatPlates(occupancy.DefaultPlates))
	require.NoError(t, err)
	require.Equal(t, occupancy.DefaultPlates, plates)
}

func TestSplitMarkers(t *testing.T) {
	require.Equal(t, []string{"NTC", "blank"}, splitMarkers(" NTC, ,blank"))
	require.Empty(t, splitMarkers(""))
}

func TestWriteToFlushesSTDOUT(t *testing.T) {
	type cell struct {
		Name string `csv:"name"`
	}

	var buf bytes.Buffer
	saved := STDOUT
	STDOUT = bufio.NewWriterSize(&buf, BufferSize)
	defer func() { STDOUT = saved }()

	require.NoError(t, writeTo("", ',', []cell{{"A1"}}))
	require.Equal(t, "name\nA1\n", buf.String())

	path := filepath.Join(t.TempDir(), "table.csv")
	require.NoError(t, writeTo(path, '\t', []cell{{"B1"}}))
	written, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "name\nB1\n", string(written))

	require.Error(t, writeTo(filepath.Join(t.TempDir(), "missing", "table.csv"), ',', []cell{{"C1"}}))
}
