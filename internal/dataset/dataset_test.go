package dataset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FlavioCFOliveira/tinynet/internal/tensor"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadCSV(t *testing.T) {
	path := writeCSV(t, "a,label,b\n1,0,2\n3,1,4\n5,1,6\n")

	d, err := LoadCSV(path, []int{1}, true)
	require.NoError(t, err)
	assert.Equal(t, 3, d.Len())
	assert.Equal(t, []tensor.Vec{{1, 2}, {3, 4}, {5, 6}}, d.Samples)
	assert.Equal(t, []tensor.Vec{{0}, {1}, {1}}, d.Targets)

	labels, err := d.Labels()
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 1}, labels)
}

func TestLoadCSVTargetOrder(t *testing.T) {
	path := writeCSV(t, "1,2,3\n4,5,6\n")

	d, err := LoadCSV(path, []int{2, 0}, false)
	require.NoError(t, err)
	assert.Equal(t, []tensor.Vec{{2}, {5}}, d.Samples)
	assert.Equal(t, []tensor.Vec{{3, 1}, {6, 4}}, d.Targets)
}

func TestLoadCSVErrors(t *testing.T) {
	_, err := LoadCSV(filepath.Join(t.TempDir(), "missing.csv"), nil, false)
	assert.Error(t, err)

	_, err = LoadCSV(writeCSV(t, "a,b\n"), []int{1}, true)
	assert.ErrorContains(t, err, "no data rows")

	_, err = LoadCSV(writeCSV(t, "1,x\n"), []int{1}, false)
	assert.ErrorContains(t, err, "row 0, col 1")

	_, err = LoadCSV(writeCSV(t, "1,2\n"), []int{2}, false)
	assert.ErrorContains(t, err, "label column 2")

	_, err = LoadCSV(writeCSV(t, "1,2\n"), []int{1, 1}, false)
	assert.ErrorContains(t, err, "twice")
}

func TestLabelsRejectsFractions(t *testing.T) {
	d := &Dataset{Targets: []tensor.Vec{{0.5}}}
	_, err := d.Labels()
	assert.Error(t, err)
}

func TestNormalizeAndSplit(t *testing.T) {
	d := &Dataset{
		Samples: []tensor.Vec{{0, 5}, {5, 5}, {10, 5}, {2.5, 5}},
		Targets: []tensor.Vec{{0}, {1}, {2}, {3}},
	}
	d.Normalize()
	assert.Equal(t, []tensor.Vec{{0, 0}, {0.5, 0}, {1, 0}, {0.25, 0}}, d.Samples)

	train, test := d.Split(0.75)
	assert.Equal(t, 3, train.Len())
	assert.Equal(t, 1, test.Len())
	assert.Equal(t, tensor.Vec{3}, test.Targets[0])

	all, none := d.Split(1)
	assert.Equal(t, 4, all.Len())
	assert.Equal(t, 0, none.Len())
}
