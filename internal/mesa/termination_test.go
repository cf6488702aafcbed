package mesa

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stevdb/stevdb/internal/testutil"
)

const starPrivateDef = `      module star_private_def
         integer, parameter :: t_max_age = 1
         termination_code_str(t_max_age) = 'max_age'
         termination_code_str(t_max_model_number) = 'max_model_number'
      termination_code_str(t_xa_central_lower_limit) = "xa_central_lower_limit"
         ! termination_code_str(t_commented) = 'commented'
      end module star_private_def
`

func TestClassifier_Classify(t *testing.T) {
	c := NewClassifier([]string{"max_model_number"})

	tests := []struct {
		code string
		want Class
		text string
	}{
		{"max_model_number", ClassNative, "mesa default (max_model_number)"},
		{"core-collapse", ClassCustom, "mesa custom (core-collapse)"},
		{"Darwin unstable", ClassCustom, "mesa custom (Darwin unstable)"},
		{"banana", ClassUnknown, "unknown (banana)"},
		{"max_model_number ", ClassUnknown, "unknown (max_model_number )"},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			got := c.Classify(tt.code)
			assert.Equal(t, tt.want, got.Class)
			assert.Equal(t, tt.text, got.String())
			assert.True(t, got.Finished())
		})
	}
}

func TestReadStatus_MissingFileIsNone(t *testing.T) {
	c := NewClassifier([]string{"max_model_number"})

	st, err := ReadStatus(filepath.Join(t.TempDir(), "termination_code"), c)
	require.NoError(t, err)

	assert.Equal(t, NoStatus, st.Code)
	assert.Equal(t, ClassUnknown, st.Class)
	assert.False(t, st.Finished())
	assert.Equal(t, "unknown (None)", st.String())
}

func TestReadStatus_FirstLineOnly(t *testing.T) {
	c := NewClassifier([]string{"max_age"})
	path := filepath.Join(t.TempDir(), "termination_code")
	testutil.WriteFile(t, path, "max_age\r\nsecond line\n")

	st, err := ReadStatus(path, c)
	require.NoError(t, err)
	assert.Equal(t, Status{Code: "max_age", Class: ClassNative}, st)
}

func TestReadStatus_EmptyFileIsNone(t *testing.T) {
	c := NewClassifier(nil)
	path := filepath.Join(t.TempDir(), "termination_code")
	testutil.WriteFile(t, path, "")

	st, err := ReadStatus(path, c)
	require.NoError(t, err)
	assert.False(t, st.Finished())
}

func TestLoadNativeCodes(t *testing.T) {
	mesaDir := t.TempDir()
	testutil.WriteFile(t, filepath.Join(mesaDir, "star", "private", "star_private_def.f90"), starPrivateDef)

	codes, err := LoadNativeCodes(mesaDir)
	require.NoError(t, err)
	assert.Equal(t, []string{"max_age", "max_model_number", "xa_central_lower_limit"}, codes)

	c := NewClassifier(codes)
	assert.Equal(t, 3, c.NativeCount())
	assert.Equal(t, ClassNative, c.Classify("xa_central_lower_limit").Class)
}

func TestLoadNativeCodes_Missing(t *testing.T) {
	t.Run("no directory", func(t *testing.T) {
		_, err := LoadNativeCodes(filepath.Join(t.TempDir(), "nope"))
		assert.True(t, errors.Is(err, ErrNotFound))
	})

	t.Run("no source file", func(t *testing.T) {
		_, err := LoadNativeCodes(t.TempDir())
		assert.True(t, errors.Is(err, ErrNotFound))
	})
}

func TestLoadSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "star1_at_cc.data")
	testutil.WriteFile(t, path, "c_core_mass 7.25\nfe_core_mass   1.8\nsn_model   rapid\nlonely\nfe_core_mass 1.9\nremnant_type  Fe   core\n")

	s, err := LoadSnapshot(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"c_core_mass", "fe_core_mass", "sn_model", "remnant_type"}, s.names())

	e, err := s.Get("fe_core_mass")
	require.NoError(t, err)
	assert.False(t, e.IsText)
	assert.Equal(t, 1.9, e.Number)

	e, err = s.Get("sn_model")
	require.NoError(t, err)
	assert.True(t, e.IsText)
	assert.Equal(t, "rapid", e.String())

	e, err = s.Get("remnant_type")
	require.NoError(t, err)
	assert.True(t, e.IsText)
	assert.Equal(t, "Fe core", e.String())

	_, err = s.Get("lonely")
	assert.True(t, IsMissingColumn(err))
}

func TestLoadSnapshot_NotFound(t *testing.T) {
	_, err := LoadSnapshot(filepath.Join(t.TempDir(), "missing.data"))
	assert.True(t, errors.Is(err, ErrNotFound))
}
