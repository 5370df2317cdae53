package objstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/pcdshub/rixcalc/pkg/calib"
)

func TestParseLocation(t *testing.T) {
	tests := []struct {
		location string
		bucket   string
		key      string
		wantErr  bool
	}{
		{location: "s3://calib/rix/MR1K1.txt", bucket: "calib", key: "rix/MR1K1.txt"},
		{location: "s3://calib/MR3K2.txt", bucket: "calib", key: "MR3K2.txt"},
		{location: "s3://calib", wantErr: true},
		{location: "s3:///MR1K1.txt", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.location, func(t *testing.T) {
			bucket, key, err := ParseLocation(tt.location)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLocation() error = %v, wantErr %v", err, tt.wantErr)
			}
			if bucket != tt.bucket || key != tt.key {
				t.Errorf("ParseLocation() = %s, %s, want %s, %s", bucket, key, tt.bucket, tt.key)
			}
		})
	}
}

func TestOpenerFallsBackToFiles(t *testing.T) {
	o, err := NewOpener(Config{})
	if err != nil {
		t.Fatalf("NewOpener() error = %v", err)
	}

	dir := t.TempDir()
	for _, name := range []string{"MR1K1.txt", "MR3K2.txt", "MR4K2.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("0 0 0\n1 10 20\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	set, err := calib.LoadSet(context.Background(), calib.Locations{
		MR1K1: filepath.Join(dir, "MR1K1.txt"),
		MR3K2: filepath.Join(dir, "MR3K2.txt"),
		MR4K2: filepath.Join(dir, "MR4K2.txt"),
	}, o)
	if err != nil {
		t.Fatalf("LoadSet() error = %v", err)
	}
	if set.MR1K1.Len() != 2 {
		t.Errorf("MR1K1 has %d points, want 2", set.MR1K1.Len())
	}

	_, err = calib.LoadSet(context.Background(), calib.Locations{
		MR1K1: "s3://calib/MR1K1.txt",
		MR3K2: filepath.Join(dir, "MR3K2.txt"),
		MR4K2: filepath.Join(dir, "MR4K2.txt"),
	}, o)
	if !errors.Is(err, calib.ErrCalibrationLoad) {
		t.Errorf("LoadSet() without endpoint error = %v, want ErrCalibrationLoad", err)
	}
}
