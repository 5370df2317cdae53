package calib

import (
	"context"
	"io"
	"os"
	"path"
	"strings"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Locations names where each optic's calibration table is stored. A location
// is a local path or anything the Opener in use understands.
type Locations struct {
	MR1K1 string `json:"mr1k1"`
	MR3K2 string `json:"mr3k2"`
	MR4K2 string `json:"mr4k2"`
}

// Set holds the calibration tables of all calibrated optics.
type Set struct {
	// MR1K1 is the upstream bendable mirror.
	MR1K1 *Table
	// MR3K2 is the horizontal KB mirror.
	MR3K2 *Table
	// MR4K2 is the vertical KB mirror.
	MR4K2 *Table
}

// Opener opens a calibration location for reading.
type Opener interface {
	Open(ctx context.Context, location string) (io.ReadCloser, error)
}

// FileOpener opens locations as local files.
type FileOpener struct{}

func (FileOpener) Open(_ context.Context, location string) (io.ReadCloser, error) {
	fp, err := os.Open(location)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to open file %s", location)
	}
	return fp, nil
}

// LoadSet loads the three tables named by loc. A nil opener reads local files.
func LoadSet(ctx context.Context, loc Locations, opener Opener) (*Set, error) {
	if opener == nil {
		opener = FileOpener{}
	}

	var s Set
	for _, item := range []struct {
		location string
		dst      **Table
	}{
		{loc.MR1K1, &s.MR1K1},
		{loc.MR3K2, &s.MR3K2},
		{loc.MR4K2, &s.MR4K2},
	} {
		t, err := loadOne(ctx, item.location, opener)
		if err != nil {
			return nil, err
		}
		*item.dst = t
	}

	return &s, nil
}

func loadOne(ctx context.Context, location string, opener Opener) (*Table, error) {
	if location == "" {
		return nil, &LoadError{Source: "<unset>", Err: pkgerrors.New("calibration location is empty")}
	}

	rc, err := opener.Open(ctx, location)
	if err != nil {
		return nil, &LoadError{Source: location, Err: err}
	}
	defer func() {
		if err := rc.Close(); err != nil {
			logrus.Warnf("failed to close calibration %s", location)
		}
	}()

	t, err := Parse(location, rc)
	if err != nil {
		return nil, err
	}
	base := path.Base(location)
	t.Name = strings.TrimSuffix(base, path.Ext(base))

	logrus.WithFields(logrus.Fields{
		"location": location,
		"points":   t.Len(),
	}).Debug("calibration table loaded")

	return t, nil
}
