package calib

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const columns = 3

var errEmpty = errors.New("no calibration rows")

// Load reads a calibration table from a local file.
func Load(path string) (*Table, error) {
	fp, err := os.Open(path)
	if err != nil {
		return nil, &LoadError{Source: path, Err: pkgerrors.Wrapf(err, "failed to open file %s", path)}
	}
	defer func(fp *os.File) {
		err := fp.Close()
		if err != nil {
			logrus.Warnf("failed to close file %s", path)
		}
	}(fp)

	t, err := Parse(path, fp)
	if err != nil {
		return nil, err
	}
	t.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return t, nil
}

// Parse reads whitespace-delimited rows of parameter, upstream and downstream
// values from r. Blank lines and lines starting with '#' are ignored. source
// is only used in error messages.
func Parse(source string, r io.Reader) (*Table, error) {
	t := &Table{Name: source}

	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) != columns {
			return nil, &LoadError{
				Source: source,
				Line:   lineNo,
				Err:    fmt.Errorf("expected %d columns, got %d", columns, len(fields)),
			}
		}

		var row [columns]float64
		for i, f := range fields {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, &LoadError{Source: source, Line: lineNo, Err: err}
			}
			row[i] = v
		}

		t.Parameter = append(t.Parameter, row[0])
		t.Upstream = append(t.Upstream, row[1])
		t.Downstream = append(t.Downstream, row[2])
	}
	if err := sc.Err(); err != nil {
		return nil, &LoadError{Source: source, Err: pkgerrors.Wrapf(err, "failed to read %s", source)}
	}

	if t.Len() == 0 {
		return nil, &LoadError{Source: source, Err: errEmpty}
	}

	return t, nil
}
