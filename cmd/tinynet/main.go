package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/FlavioCFOliveira/tinynet/internal/dataset"
	"github.com/FlavioCFOliveira/tinynet/internal/layer"
	"github.com/FlavioCFOliveira/tinynet/internal/loss"
	"github.com/FlavioCFOliveira/tinynet/internal/net"
	"github.com/FlavioCFOliveira/tinynet/internal/opt"
	"github.com/FlavioCFOliveira/tinynet/internal/parallel"
	"github.com/FlavioCFOliveira/tinynet/internal/tensor"
	"github.com/FlavioCFOliveira/tinynet/tinynet"
)

type options struct {
	arch      string
	data      string
	labels    string
	header    bool
	epochs    int
	batch     int
	lr        float64
	optimizer string
	lossName  string
	seed      int64
	classify  bool
	normalize bool
	split     float64
	interval  int
	patience  int
	csvLog    string
	workers   int
	winit     string
}

func main() {
	var o options
	flag.StringVar(&o.arch, "arch", "2-8:tanh-1:sigmoid", "network architecture, e.g. 4-16:relu-drop:0.1-3:softmax")
	flag.StringVar(&o.data, "data", "", "CSV file to train on (XOR when empty)")
	flag.StringVar(&o.labels, "labels", "", "comma separated target columns (default: last column)")
	flag.BoolVar(&o.header, "header", false, "skip the first CSV line")
	flag.IntVar(&o.epochs, "epochs", 2000, "training epochs")
	flag.IntVar(&o.batch, "batch", 4, "minibatch size")
	flag.Float64Var(&o.lr, "lr", 0.1, "learning rate (<= 0 keeps the optimizer default)")
	flag.StringVar(&o.optimizer, "optimizer", "sgd", "sgd, momentum, adagrad, rmsprop or adam")
	flag.StringVar(&o.lossName, "loss", "mse", "mse, absolute, huber, cross_entropy or cross_entropy_multiclass")
	flag.Int64Var(&o.seed, "seed", 1, "weight initialisation seed")
	flag.BoolVar(&o.classify, "classify", false, "treat the first target column as a class label")
	flag.BoolVar(&o.normalize, "normalize", false, "min-max normalise the features")
	flag.Float64Var(&o.split, "split", 1, "fraction of samples used for training; the rest is evaluated")
	flag.IntVar(&o.interval, "log", 200, "log every n epochs (0 disables)")
	flag.IntVar(&o.patience, "patience", 0, "stop after n epochs without improvement (0 disables)")
	flag.StringVar(&o.csvLog, "csvlog", "", "write per-epoch loss to this CSV file")
	flag.IntVar(&o.workers, "workers", 0, "worker goroutines (0 uses every CPU)")
	flag.StringVar(&o.winit, "winit", "xavier", "weight initialiser: xavier, lecun, gaussian, he or constant")
	flag.Parse()

	if err := run(o); err != nil {
		fmt.Fprintf(os.Stderr, "tinynet: %v\n", err)
		os.Exit(1)
	}
}

func run(o options) error {
	seq, err := tinynet.ParseArch(o.arch)
	if err != nil {
		return err
	}
	seq.SetSeed(o.seed)

	lossFn, ok := loss.ByName(o.lossName)
	if !ok {
		return fmt.Errorf("unknown loss %q", o.lossName)
	}
	optimizer, ok := opt.ByName(o.optimizer, o.lr)
	if !ok {
		return fmt.Errorf("unknown optimizer %q", o.optimizer)
	}

	winit, ok := layer.InitializerByName(o.winit)
	if !ok {
		return fmt.Errorf("unknown weight initialiser %q", o.winit)
	}

	network := tinynet.NewNetwork(seq, lossFn)
	defer network.Close()
	network.SetName(o.arch)
	network.WeightInit(winit)

	cfg := parallel.DefaultConfig()
	if o.workers > 0 {
		cfg.NumWorkers = o.workers
		cfg.Enabled = o.workers > 1
	}
	network.SetExecutor(parallel.New(cfg))

	d, err := load(o, seq.InDataSize())
	if err != nil {
		return err
	}
	if o.normalize {
		d.Normalize()
	}
	train, test := d.Split(o.split)

	network.Summary(os.Stdout)

	fit := net.FitConfig{
		BatchSize:    min(o.batch, train.Len()),
		Epochs:       o.epochs,
		ResetWeights: true,
		Callbacks:    []net.Callback{net.Logger{Interval: o.interval}},
	}
	if o.patience > 0 {
		es := net.NewEarlyStopping(o.patience, 1e-6)
		es.Out = os.Stdout
		fit.Callbacks = append(fit.Callbacks, es, net.NewBestWeights())
	}
	var csvLog *net.CSVLogger
	if o.csvLog != "" {
		csvLog = net.NewCSVLogger(o.csvLog, false)
		fit.Callbacks = append(fit.Callbacks, csvLog)
	}

	if o.classify {
		err = classify(network, optimizer, train, test, fit)
	} else {
		err = regress(network, optimizer, train, test, fit)
	}
	if err != nil {
		return err
	}
	if csvLog != nil && csvLog.Err != nil {
		return csvLog.Err
	}
	return nil
}

func classify(n *net.Network, o opt.Optimizer, train, test *dataset.Dataset, fit net.FitConfig) error {
	labels, err := train.Labels()
	if err != nil {
		return err
	}
	if err := n.Train(o, train.Samples, labels, fit); err != nil {
		return err
	}

	eval := train
	if test.Len() > 0 {
		eval = test
	}
	evalLabels, err := eval.Labels()
	if err != nil {
		return err
	}
	res, err := n.Test(eval.Samples, evalLabels)
	if err != nil {
		return err
	}
	fmt.Println()
	res.PrintDetail(os.Stdout)
	return nil
}

func regress(n *net.Network, o opt.Optimizer, train, test *dataset.Dataset, fit net.FitConfig) error {
	if err := n.FitVec(o, train.Samples, train.Targets, fit); err != nil {
		return err
	}

	eval := train
	if test.Len() > 0 {
		eval = test
	}
	outs, err := n.TestOutputs(eval.Samples)
	if err != nil {
		return err
	}
	fmt.Println("\nResults:")
	for i, out := range outs {
		if i == 10 {
			fmt.Printf("  ... %d more\n", len(outs)-i)
			break
		}
		fmt.Printf("  %v -> %.4f (target: %v)\n", eval.Samples[i], out, eval.Targets[i])
	}
	l, err := n.Loss(tensor.Wrap(eval.Samples), tensor.Wrap(eval.Targets))
	if err != nil {
		return err
	}
	fmt.Printf("Loss: %.6f\n", l/float64(eval.Len()))
	return nil
}

func load(o options, inputs int) (*dataset.Dataset, error) {
	if o.data == "" {
		return &dataset.Dataset{
			Samples: []tensor.Vec{{0, 0}, {0, 1}, {1, 0}, {1, 1}},
			Targets: []tensor.Vec{{0}, {1}, {1}, {0}},
		}, nil
	}

	var cols []int
	if o.labels != "" {
		for _, f := range strings.Split(o.labels, ",") {
			c, err := strconv.Atoi(strings.TrimSpace(f))
			if err != nil {
				return nil, fmt.Errorf("label column %q: %w", f, err)
			}
			cols = append(cols, c)
		}
	} else {
		// features first, target in the last column
		cols = []int{inputs}
	}

	d, err := dataset.LoadCSV(o.data, cols, o.header)
	if err != nil {
		return nil, err
	}
	if d.Len() == 0 || len(d.Samples[0]) != inputs {
		return nil, errors.New("feature count does not match the architecture input size")
	}
	return d, nil
}
