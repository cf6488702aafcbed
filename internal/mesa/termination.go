package mesa

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// NoStatus is the code recorded when a run has not written its
// termination file (still running, or crashed before finishing).
const NoStatus = "None"

// Class is the origin of a termination code.
type Class string

const (
	// ClassNative codes are compiled into MESA (star_private_def.f90).
	ClassNative Class = "native"
	// ClassCustom codes come from run_star_extras / run_binary_extras hooks.
	ClassCustom Class = "custom"
	// ClassUnknown covers everything else, including NoStatus.
	ClassUnknown Class = "unknown"
)

// CustomCodes are termination codes raised by our own extras hooks.
var CustomCodes = []string{
	"Darwin unstable",
	"mdot_atmospheric > max_mdot_rlof",
	"white-dwarf",
	"core-collapse",
	"ce merge",
}

// codesFile is the MESA source file listing native termination codes,
// relative to $MESA_DIR.
var codesFile = filepath.Join("star", "private", "star_private_def.f90")

const codesPrefix = "termination_code_str(t"

// Status is a classified termination code.
type Status struct {
	Code  string
	Class Class
}

// Finished reports whether the run wrote a termination file.
func (s Status) Finished() bool {
	return s.Code != NoStatus
}

// String formats the status as stored in the database.
func (s Status) String() string {
	switch s.Class {
	case ClassNative:
		return fmt.Sprintf("mesa default (%s)", s.Code)
	case ClassCustom:
		return fmt.Sprintf("mesa custom (%s)", s.Code)
	default:
		return fmt.Sprintf("unknown (%s)", s.Code)
	}
}

// Classifier maps raw termination codes to a Class.
// The native list is read once from the MESA installation.
type Classifier struct {
	native map[string]struct{}
	custom map[string]struct{}
}

// NewClassifier creates a classifier over the given native codes and
// CustomCodes.
func NewClassifier(native []string) *Classifier {
	c := &Classifier{
		native: make(map[string]struct{}, len(native)),
		custom: make(map[string]struct{}, len(CustomCodes)),
	}
	for _, code := range native {
		c.native[code] = struct{}{}
	}
	for _, code := range CustomCodes {
		c.custom[code] = struct{}{}
	}
	return c
}

// Classify returns the status for a raw code. Exact matches only.
func (c *Classifier) Classify(code string) Status {
	if _, ok := c.native[code]; ok {
		return Status{Code: code, Class: ClassNative}
	}
	if _, ok := c.custom[code]; ok {
		return Status{Code: code, Class: ClassCustom}
	}
	return Status{Code: code, Class: ClassUnknown}
}

// NativeCount returns the number of native codes known to the classifier.
func (c *Classifier) NativeCount() int {
	return len(c.native)
}

// LoadNativeCodes extracts termination codes from
// $MESA_DIR/star/private/star_private_def.f90. Lines look like:
//
//	termination_code_str(t_max_age) = 'max_age'
func LoadNativeCodes(mesaDir string) ([]string, error) {
	info, err := os.Stat(mesaDir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("mesa_dir %q: %w", mesaDir, ErrNotFound)
	}

	path := filepath.Join(mesaDir, codesFile)
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var codes []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if !strings.HasPrefix(line, codesPrefix) {
			continue
		}
		eq := strings.LastIndex(line, "=")
		if eq < 0 {
			continue
		}
		code := strings.Trim(strings.TrimSpace(line[eq+1:]), `'"`)
		if code != "" {
			codes = append(codes, code)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return codes, nil
}

// ReadStatus reads the first line of a termination file and classifies
// it. A missing file is not an error: it yields NoStatus.
func ReadStatus(path string, c *Classifier) (Status, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Status{Code: NoStatus, Class: ClassUnknown}, nil
	}
	if err != nil {
		return Status{}, fmt.Errorf("read termination file: %w", err)
	}

	code, _, _ := strings.Cut(string(data), "\n")
	code = strings.TrimRight(code, "\r \t")
	if code == "" {
		code = NoStatus
	}
	if code == NoStatus {
		return Status{Code: NoStatus, Class: ClassUnknown}, nil
	}
	return c.Classify(code), nil
}
