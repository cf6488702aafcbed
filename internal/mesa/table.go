package mesa

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// StepColumn is the step counter used for restart de-duplication.
const StepColumn = "model_number"

// historyMarker identifies history files by name.
const historyMarker = "history"

// headerLines is the number of lines preceding the numeric rows.
const headerLines = 6

// maxLineBytes bounds a single line; MESA history rows with many columns
// easily exceed bufio's 64KiB default.
const maxLineBytes = 4 << 20

// Table is an in-memory column store for one MESA output file.
// All columns have the same length.
type Table struct {
	path    string
	history bool

	header     map[string]any
	headerKeys []string

	columns []string
	data    map[string][]float64
}

// Load reads a MESA table from path. If path does not exist, path+".gz"
// is tried. Returns an error wrapping ErrNotFound if neither exists.
//
// Files whose name contains "history" are de-duplicated on model_number
// when that column is present.
func Load(path string) (*Table, error) {
	r, closeFn, err := open(path)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	t, err := parse(path, r)
	if err != nil {
		return nil, err
	}

	t.history = strings.Contains(filepath.Base(path), historyMarker)
	if t.history {
		if _, ok := t.data[StepColumn]; ok {
			t.dedupe()
		}
	}

	return t, nil
}

// open returns a reader for path, transparently decompressing path.gz.
func open(path string) (io.Reader, func(), error) {
	f, err := os.Open(path)
	if err == nil {
		return f, func() { f.Close() }, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}

	gzPath := path + ".gz"
	gzf, err := os.Open(gzPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil, fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", gzPath, err)
	}

	zr, err := gzip.NewReader(gzf)
	if err != nil {
		gzf.Close()
		return nil, nil, fmt.Errorf("decompress %s: %w", gzPath, err)
	}
	return zr, func() {
		zr.Close()
		gzf.Close()
	}, nil
}

func parse(path string, r io.Reader) (*Table, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	t := &Table{
		path:   path,
		header: make(map[string]any),
		data:   make(map[string][]float64),
	}

	var headerNames []string
	line := 0
	for line < headerLines && sc.Scan() {
		line++
		fields := strings.Fields(sc.Text())
		switch line {
		case 2:
			headerNames = fields
		case 3:
			for i, name := range headerNames {
				if i >= len(fields) {
					break
				}
				t.headerKeys = append(t.headerKeys, name)
				t.header[name] = coerceHeaderValue(fields[i])
			}
		case 6:
			t.columns = fields
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if line < headerLines {
		return nil, &ParseError{Path: path, Line: line, Message: "truncated header"}
	}
	if len(t.columns) == 0 {
		return nil, &ParseError{Path: path, Line: headerLines, Message: "no column names"}
	}
	for _, name := range t.columns {
		if _, dup := t.data[name]; dup {
			return nil, &ParseError{Path: path, Line: headerLines, Message: fmt.Sprintf("duplicate column %q", name)}
		}
		t.data[name] = nil
	}

	for sc.Scan() {
		line++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) != len(t.columns) {
			return nil, &ParseError{
				Path:    path,
				Line:    line,
				Message: fmt.Sprintf("expected %d values, found %d", len(t.columns), len(fields)),
			}
		}
		for i, field := range fields {
			v, err := parseNumber(field)
			if err != nil {
				return nil, &ParseError{
					Path:    path,
					Line:    line,
					Message: fmt.Sprintf("column %q: %v", t.columns[i], err),
				}
			}
			name := t.columns[i]
			t.data[name] = append(t.data[name], v)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	return t, nil
}

// dedupe drops rows invalidated by a restart. Scanning backward from the
// last row, a row survives only if its step is strictly below the minimum
// step kept so far. Sibling columns are filtered in lockstep.
func (t *Table) dedupe() {
	steps := t.data[StepColumn]
	n := len(steps)
	if n < 2 {
		return
	}

	keep := make([]bool, n)
	keep[n-1] = true
	minKept := steps[n-1]
	dropped := 0
	for i := n - 2; i >= 0; i-- {
		if steps[i] < minKept {
			keep[i] = true
			minKept = steps[i]
		} else {
			dropped++
		}
	}
	if dropped == 0 {
		return
	}

	for _, name := range t.columns {
		src := t.data[name]
		dst := make([]float64, 0, n-dropped)
		for i, v := range src {
			if keep[i] {
				dst = append(dst, v)
			}
		}
		t.data[name] = dst
	}
}

// Path returns the path the table was requested from.
func (t *Table) Path() string { return t.path }

// isHistory reports whether the table was loaded as a history file.
func (t *Table) isHistory() bool { return t.history }

// Len returns the number of rows.
func (t *Table) Len() int {
	if len(t.columns) == 0 {
		return 0
	}
	return len(t.data[t.columns[0]])
}

// Columns returns column names in file order.
func (t *Table) Columns() []string {
	out := make([]string, len(t.columns))
	copy(out, t.columns)
	return out
}

// Has reports whether the table has a column.
func (t *Table) Has(name string) bool {
	_, ok := t.data[name]
	return ok
}

// Get returns the values of a column. The returned slice must not be
// modified. A missing column returns a *MissingColumnError.
func (t *Table) Get(name string) ([]float64, error) {
	values, ok := t.data[name]
	if !ok {
		return nil, &MissingColumnError{Column: name, Path: t.path}
	}
	return values, nil
}

// First returns the first value of a column.
func (t *Table) First(name string) (float64, error) {
	values, err := t.Get(name)
	if err != nil {
		return 0, err
	}
	if len(values) == 0 {
		return 0, fmt.Errorf("column %q in %s: no rows", name, t.path)
	}
	return values[0], nil
}

// Last returns the last value of a column.
func (t *Table) Last(name string) (float64, error) {
	values, err := t.Get(name)
	if err != nil {
		return 0, err
	}
	if len(values) == 0 {
		return 0, fmt.Errorf("column %q in %s: no rows", name, t.path)
	}
	return values[len(values)-1], nil
}

// Header returns a header value: int64, float64 or string.
func (t *Table) Header(name string) (any, bool) {
	v, ok := t.header[name]
	return v, ok
}

// headerNames returns header names in file order.
func (t *Table) headerNames() []string {
	out := make([]string, len(t.headerKeys))
	copy(out, t.headerKeys)
	return out
}

// parseNumber parses a MESA numeric cell. Fortran double exponents
// (1.5D+00) are accepted.
func parseNumber(s string) (float64, error) {
	if strings.ContainsAny(s, "Dd") {
		s = strings.Map(func(r rune) rune {
			if r == 'D' || r == 'd' {
				return 'E'
			}
			return r
		}, s)
	}
	return strconv.ParseFloat(s, 64)
}

func coerceHeaderValue(s string) any {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if f, err := parseNumber(s); err == nil {
		return f
	}
	return strings.Trim(s, `"'`)
}
