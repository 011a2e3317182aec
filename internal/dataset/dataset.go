// Package dataset loads tabular training data.
package dataset

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"strconv"

	"github.com/FlavioCFOliveira/tinynet/internal/tensor"
)

// Dataset is a collection of feature vectors and their targets.
type Dataset struct {
	Samples []tensor.Vec
	Targets []tensor.Vec
}

// Len returns the number of samples.
func (d *Dataset) Len() int { return len(d.Samples) }

// LoadCSV loads data from a CSV file.
// labelCols lists the columns used as targets, in the order they should appear;
// every other column is a feature. hasHeader skips the first line.
func LoadCSV(filename string, labelCols []int, hasHeader bool) (*Dataset, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("csv file is empty")
	}

	startRow := 0
	if hasHeader {
		startRow = 1
	}
	if len(records) <= startRow {
		return nil, fmt.Errorf("csv file has no data rows")
	}

	numCols := len(records[0])
	isLabelCol := make(map[int]bool, len(labelCols))
	for _, col := range labelCols {
		if col < 0 || col >= numCols {
			return nil, fmt.Errorf("label column %d outside [0, %d)", col, numCols)
		}
		if isLabelCol[col] {
			return nil, fmt.Errorf("label column %d listed twice", col)
		}
		isLabelCol[col] = true
	}

	d := &Dataset{
		Samples: make([]tensor.Vec, 0, len(records)-startRow),
		Targets: make([]tensor.Vec, 0, len(records)-startRow),
	}
	for i := startRow; i < len(records); i++ {
		record := records[i]
		if len(record) != numCols {
			return nil, fmt.Errorf("inconsistent number of columns at row %d", i)
		}

		values := make(tensor.Vec, numCols)
		for j, s := range record {
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, fmt.Errorf("failed to parse value at row %d, col %d: %w", i, j, err)
			}
			values[j] = v
		}

		sample := make(tensor.Vec, 0, numCols-len(labelCols))
		for j, v := range values {
			if !isLabelCol[j] {
				sample = append(sample, v)
			}
		}
		target := make(tensor.Vec, 0, len(labelCols))
		for _, col := range labelCols {
			target = append(target, values[col])
		}
		d.Samples = append(d.Samples, sample)
		d.Targets = append(d.Targets, target)
	}
	return d, nil
}

// Labels returns the first target column as class indices.
func (d *Dataset) Labels() ([]int, error) {
	labels := make([]int, len(d.Targets))
	for i, t := range d.Targets {
		if len(t) == 0 {
			return nil, fmt.Errorf("sample %d has no target", i)
		}
		if t[0] < 0 || t[0] != math.Trunc(t[0]) {
			return nil, fmt.Errorf("sample %d: target %g is not a class index", i, t[0])
		}
		labels[i] = int(t[0])
	}
	return labels, nil
}

// Normalize performs min-max normalization on the samples, in place.
func (d *Dataset) Normalize() {
	if len(d.Samples) == 0 {
		return
	}

	lo := d.Samples[0].Clone()
	hi := d.Samples[0].Clone()
	for _, sample := range d.Samples {
		for i, v := range sample {
			lo[i] = math.Min(lo[i], v)
			hi[i] = math.Max(hi[i], v)
		}
	}

	for _, sample := range d.Samples {
		for i := range sample {
			if diff := hi[i] - lo[i]; diff != 0 {
				sample[i] = (sample[i] - lo[i]) / diff
			} else {
				sample[i] = 0
			}
		}
	}
}

// Split splits the dataset in two at ratio (0.0 to 1.0) and returns the
// leading and trailing parts. The parts share storage with d.
func (d *Dataset) Split(ratio float64) (*Dataset, *Dataset) {
	if ratio <= 0 {
		return &Dataset{}, d
	}
	if ratio >= 1 {
		return d, &Dataset{}
	}

	idx := int(float64(len(d.Samples)) * ratio)
	return &Dataset{Samples: d.Samples[:idx], Targets: d.Targets[:idx]},
		&Dataset{Samples: d.Samples[idx:], Targets: d.Targets[idx:]}
}
