package occupancy

import (
	"errors"
	"math"
	"testing"

	"github.com/carbocation/pico/colorpair"
)

func record(well, plateType string, ab1, ab2, double, valid int64) colorpair.Record {
	return colorpair.Record{
		Well:            well,
		SampleName:      "S1",
		PlateType:       plateType,
		Colorpair:       "GY",
		Ab1:             "CD3",
		Ab2:             "CD28",
		ValidPartitions: valid,
		VolumePerWell:   40,
		PositivesAb1:    ab1,
		PositivesAb2:    ab2,
		PositivesDouble: double,
		PositivesNone:   valid - ab1 - ab2 - double,
	}
}

func TestLookupMastermix(t *testing.T) {
	type expectation struct {
		PlateType string
		Valid     bool
		Volume    float64
	}

	expectations := []expectation{
		{"Nanoplate 26K 24-well", true, 42},
		{"Nanoplate 8.5K 96-well", true, 13},
		{"26K", true, 42},
		{"Nanoplate 26k 24-well", false, 0},
		{"Nanoplate 1K", false, 0},
		{"", false, 0},
	}

	for _, v := range expectations {
		got := LookupMastermix(DefaultPlates, v.PlateType)
		if got.Valid != v.Valid || (v.Valid && got.Float64 != v.Volume) {
			t.Fatalf("Expected %+v, got %+v", v, got)
		}
	}
}

func TestLookupMastermixFirstMatchWins(t *testing.T) {
	plates := []Plate{{Format: "26K", MastermixVolume: 42}, {Format: "Nanoplate", MastermixVolume: 99}}

	if got := LookupMastermix(plates, "Nanoplate 26K"); got.Float64 != 42 {
		t.Fatalf("Expected the first matching plate, got %+v", got)
	}
}

func TestParsePlates(t *testing.T) {
	plates, err := ParsePlates("8.5K=13, 26K = 42")
	if err != nil {
		t.Fatal(err)
	}
	if len(plates) != 2 || plates[0] != (Plate{"8.5K", 13}) || plates[1] != (Plate{"26K", 42}) {
		t.Fatalf("Unexpected plates %+v", plates)
	}

	for _, bad := range []string{"26K", "=42", "26K=abc", "26K=0", "26K=-1"} {
		if _, err := ParsePlates(bad); err == nil {
			t.Fatalf("Expected %q to be rejected", bad)
		}
	}
}

func TestLambda(t *testing.T) {
	type expectation struct {
		Valid     int64
		Positives int64
		Lambda    float64
	}

	expectations := []expectation{
		{1000, 0, 0},
		{1000, 60, -math.Log(0.94)},
		{1000, 500, math.Log(2)},
		{20000, 950, math.Log(20000) - math.Log(19050)},
	}

	for _, v := range expectations {
		got, err := Lambda(v.Valid, v.Positives)
		if err != nil {
			t.Fatal(err)
		}
		if math.Abs(got-v.Lambda) > 1e-12 {
			t.Fatalf("Expected %+v, got %v", v, got)
		}
	}

	if _, err := Lambda(1000, 1000); !errors.Is(err, ErrSaturated) {
		t.Fatalf("Expected ErrSaturated, got %v", err)
	}
	if _, err := Lambda(0, 0); err == nil {
		t.Fatalf("Expected an error for zero valid partitions")
	}
}

func TestAnnotate(t *testing.T) {
	got, err := Annotate(record("A1", "Nanoplate 26K", 50, 40, 10, 1000), DefaultPlates)
	if err != nil {
		t.Fatal(err)
	}

	if !got.VolumeCorrected() || got.MastermixVolume.Float64 != 42 || got.DeadVolume.Float64 != 2 {
		t.Fatalf("Unexpected volumes %+v", got)
	}
	if math.Abs(got.LambdaAb1-(-math.Log(0.94))) > 1e-12 {
		t.Fatalf("Unexpected lambda_ab1 %v", got.LambdaAb1)
	}
	if math.Abs(got.LambdaAb2-(-math.Log(0.95))) > 1e-12 {
		t.Fatalf("Unexpected lambda_ab2 %v", got.LambdaAb2)
	}
	if got.PositivesAb1 != 50 || got.PositivesDouble != 10 {
		t.Fatalf("Annotate altered the counts: %+v", got)
	}

	unknown, err := Annotate(record("A1", "Nanoplate 1K", 50, 40, 10, 1000), DefaultPlates)
	if err != nil {
		t.Fatal(err)
	}
	if unknown.VolumeCorrected() || unknown.MastermixVolume.Valid || unknown.DeadVolume.Valid {
		t.Fatalf("Expected null volumes, got %+v", unknown)
	}
}

func TestAnnotateSaturated(t *testing.T) {
	_, err := Annotate(record("A1", "Nanoplate 26K", 0, 0, 1000, 1000), DefaultPlates)

	var rowErr *RowError
	if !errors.As(err, &rowErr) || !errors.Is(err, ErrSaturated) {
		t.Fatalf("Expected a saturated RowError, got %v", err)
	}
	if rowErr.Well != "A1" || rowErr.Colorpair != "GY" {
		t.Fatalf("Unexpected row error %+v", rowErr)
	}
}

func TestAnnotateAll(t *testing.T) {
	records := []colorpair.Record{
		record("A1", "Nanoplate 26K", 50, 40, 10, 1000),
		record("B1", "Nanoplate 1K", 50, 40, 10, 1000),
		record("A2", "Nanoplate 1K", 50, 40, 10, 1000),
		record("C1", "Nanoplate 26K", 990, 0, 10, 1000),
		record("D1", "Mystery", 5, 5, 5, 1000),
	}

	out, warnings, rejected := AnnotateAll(records, DefaultPlates)

	if len(out) != 4 {
		t.Fatalf("Expected 4 annotated records, got %d", len(out))
	}
	if len(rejected) != 1 || rejected[0].Well != "C1" || !errors.Is(rejected[0], ErrSaturated) {
		t.Fatalf("Expected C1 to be rejected as saturated, got %+v", rejected)
	}

	if len(warnings) != 2 {
		t.Fatalf("Expected one warning per unknown plate type, got %+v", warnings)
	}
	if warnings[0].PlateType != "Mystery" || warnings[1].PlateType != "Nanoplate 1K" {
		t.Fatalf("Unexpected warning order %+v", warnings)
	}
	if w := warnings[1].Wells; len(w) != 2 || w[0] != "A2" || w[1] != "B1" {
		t.Fatalf("Unexpected warned wells %+v", w)
	}
	if warnings[1].Message != UnknownPlateMessage {
		t.Fatalf("Unexpected message %q", warnings[1].Message)
	}
}
