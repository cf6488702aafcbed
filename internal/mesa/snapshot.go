package mesa

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
)

// Entry is one `name value` line of a core-collapse snapshot.
// Numeric values set Number; anything else, including values of several
// words, is kept in Text with single spaces between words.
type Entry struct {
	Name   string
	Number float64
	Text   string
	IsText bool
}

// Snapshot holds the key-value pairs written when a star reaches core
// collapse. Later lines override earlier ones with the same name.
type Snapshot struct {
	path    string
	order   []string
	entries map[string]Entry
}

// LoadSnapshot reads a core-collapse file. A missing file returns an error
// wrapping ErrNotFound.
func LoadSnapshot(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	s := &Snapshot{path: path, entries: make(map[string]Entry)}
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 2 {
			continue
		}
		name, raw := fields[0], strings.Join(fields[1:], " ")
		e := Entry{Name: name}
		if v, err := parseNumber(raw); err == nil {
			e.Number = v
		} else {
			e.Text = raw
			e.IsText = true
		}
		if _, seen := s.entries[name]; !seen {
			s.order = append(s.order, name)
		}
		s.entries[name] = e
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return s, nil
}

// Get returns the entry for name.
func (s *Snapshot) Get(name string) (Entry, error) {
	e, ok := s.entries[name]
	if !ok {
		return Entry{}, &MissingColumnError{Column: name, Path: s.path}
	}
	return e, nil
}

// names returns entry names in file order.
func (s *Snapshot) names() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// String renders the entry value as it appeared in the file.
func (e Entry) String() string {
	if e.IsText {
		return e.Text
	}
	return strconv.FormatFloat(e.Number, 'g', -1, 64)
}
