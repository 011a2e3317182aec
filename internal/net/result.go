package net

import (
	"fmt"
	"io"
	"slices"
	"text/tabwriter"

	"github.com/FlavioCFOliveira/tinynet/internal/layer"
	"github.com/FlavioCFOliveira/tinynet/internal/nnerr"
	"github.com/FlavioCFOliveira/tinynet/internal/tensor"
)

// Result is the outcome of a classification test.
type Result struct {
	NumSuccess int
	NumTotal   int

	// ConfusionMatrix[predicted][actual] counts samples.
	ConfusionMatrix map[int]map[int]int
}

// Accuracy returns the percentage of correctly classified samples.
func (r Result) Accuracy() float64 {
	if r.NumTotal == 0 {
		return 0
	}
	return 100 * float64(r.NumSuccess) / float64(r.NumTotal)
}

// Labels returns every label seen as a prediction or as a true label, sorted.
func (r Result) Labels() []int {
	seen := map[int]bool{}
	for p, row := range r.ConfusionMatrix {
		seen[p] = true
		for a := range row {
			seen[a] = true
		}
	}
	labels := make([]int, 0, len(seen))
	for l := range seen {
		labels = append(labels, l)
	}
	slices.Sort(labels)
	return labels
}

// PrintSummary writes the accuracy line.
func (r Result) PrintSummary(w io.Writer) {
	fmt.Fprintf(w, "accuracy: %.2f%% (%d/%d)\n", r.Accuracy(), r.NumSuccess, r.NumTotal)
}

// PrintDetail writes the accuracy line and the confusion matrix, one row per
// predicted label and one column per actual label.
func (r Result) PrintDetail(w io.Writer) {
	r.PrintSummary(w)
	labels := r.Labels()

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprint(tw, "pred\\actual\t")
	for _, a := range labels {
		fmt.Fprintf(tw, "%d\t", a)
	}
	fmt.Fprintln(tw)
	for _, p := range labels {
		fmt.Fprintf(tw, "%d\t", p)
		for _, a := range labels {
			fmt.Fprintf(tw, "%d\t", r.ConfusionMatrix[p][a])
		}
		fmt.Fprintln(tw)
	}
	tw.Flush()
}

// Test classifies every input in the Test phase and compares the predicted
// label (the index of the largest output) with the true one.
func (n *Network) Test(inputs []tensor.Vec, labels []int) (Result, error) {
	if len(inputs) != len(labels) {
		return Result{}, nnerr.Errorf(nnerr.InputContract, "net.test",
			"%w: %d inputs, %d labels", nnerr.ErrSizeMismatch, len(inputs), len(labels))
	}
	outs, err := n.TestOutputs(inputs)
	if err != nil {
		return Result{}, err
	}
	res := Result{ConfusionMatrix: map[int]map[int]int{}}
	for i, out := range outs {
		predicted := out.MaxIndex()
		actual := labels[i]
		if res.ConfusionMatrix[predicted] == nil {
			res.ConfusionMatrix[predicted] = map[int]int{}
		}
		res.ConfusionMatrix[predicted][actual]++
		if predicted == actual {
			res.NumSuccess++
		}
		res.NumTotal++
	}
	return res, nil
}

// TestOutputs returns the raw outputs for every input, computed in the Test phase.
func (n *Network) TestOutputs(inputs []tensor.Vec) ([]tensor.Vec, error) {
	n.SetPhase(layer.Test)
	if len(inputs) == 0 {
		return nil, nil
	}
	out, err := n.PredictBatch(tensor.Wrap(inputs))
	if err != nil {
		return nil, err
	}
	res := make([]tensor.Vec, len(out))
	for i, o := range out {
		for _, v := range o {
			res[i] = append(res[i], v...)
		}
	}
	return res, nil
}
