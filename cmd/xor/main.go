package main

import (
	"fmt"
	"os"

	"github.com/FlavioCFOliveira/tinynet/tinynet"
)

// XOR on a graph: the input fans out to two hidden branches whose outputs
// are concatenated before the output layer.
func main() {
	fmt.Println("=== XOR Training Example ===")

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "xor: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	b := tinynet.NewBuilder()

	in, err := tinynet.Input(2)
	if err != nil {
		return err
	}
	left, err := tinynet.Dense(2, 3, tinynet.Tanh)
	if err != nil {
		return err
	}
	right, err := tinynet.Dense(2, 3, tinynet.ReLU)
	if err != nil {
		return err
	}
	join, err := tinynet.Concat(3, 3)
	if err != nil {
		return err
	}
	out, err := tinynet.Dense(6, 1, tinynet.Sigmoid)
	if err != nil {
		return err
	}

	hIn, err := tinynet.Place(b, in, tinynet.Owned)
	if err != nil {
		return err
	}
	hLeft, err := tinynet.Place(b, left, tinynet.Owned)
	if err != nil {
		return err
	}
	hRight, err := tinynet.Place(b, right, tinynet.Owned)
	if err != nil {
		return err
	}
	hJoin, err := tinynet.Place(b, join, tinynet.Owned)
	if err != nil {
		return err
	}
	hOut, err := tinynet.Place(b, out, tinynet.Owned)
	if err != nil {
		return err
	}

	for _, c := range []struct {
		head, tail         tinynet.Ref
		headPort, tailPort int
	}{
		{hIn, hLeft, 0, 0},
		{hIn, hRight, 0, 0},
		{hLeft, hJoin, 0, 0},
		{hRight, hJoin, 0, 1},
		{hJoin, hOut, 0, 0},
	} {
		if err := b.Connect(c.head, c.tail, c.headPort, c.tailPort); err != nil {
			return err
		}
	}
	g, err := b.Build([]tinynet.Ref{hIn}, []tinynet.Ref{hOut})
	if err != nil {
		return err
	}

	network := tinynet.NewNetwork(g, tinynet.MSE)
	defer network.Close()
	network.SetName("xor")
	network.Summary(os.Stdout)

	trainX := []tinynet.Vec{{0, 0}, {0, 1}, {1, 0}, {1, 1}}
	trainY := []tinynet.Vec{{0}, {1}, {1}, {0}}

	err = network.FitVec(tinynet.SGD(0.5), trainX, trainY, tinynet.FitConfig{
		Epochs: 3000,
		OnEpoch: func(epoch int, loss float64) {
			if epoch%500 == 0 {
				fmt.Printf("Epoch %d, Loss: %.6f\n", epoch, loss)
			}
		},
	})
	if err != nil {
		return err
	}

	fmt.Println("\nTesting trained network:")
	for i := range trainX {
		pred, err := network.Predict(trainX[i])
		if err != nil {
			return err
		}
		fmt.Printf("Input: %v, Predicted: %.4f, Target: %v\n", trainX[i], pred[0], trainY[i][0])
	}
	return nil
}
