package net

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"
)

// CSVLogger writes one record per epoch with the epoch loss, the number of
// minibatches and the elapsed time.
type CSVLogger struct {
	BaseCallback
	Filename string
	Append   bool

	// Err holds the first I/O error; logging stops once it is set.
	Err error

	file    *os.File
	writer  *csv.Writer
	start   time.Time
	batches int
}

// NewCSVLogger creates a new CSVLogger.
func NewCSVLogger(filename string, append bool) *CSVLogger {
	return &CSVLogger{
		Filename: filename,
		Append:   append,
	}
}

func (c *CSVLogger) OnTrainBegin(n *Network) {
	c.Err = nil
	mode := os.O_CREATE | os.O_WRONLY
	if c.Append {
		mode |= os.O_APPEND
	} else {
		mode |= os.O_TRUNC
	}

	file, err := os.OpenFile(c.Filename, mode, 0644)
	if err != nil {
		c.Err = fmt.Errorf("csv logger: %w", err)
		return
	}
	c.file = file
	c.writer = csv.NewWriter(file)
	c.start = time.Now()

	info, err := file.Stat()
	if err == nil && (info.Size() == 0 || !c.Append) {
		c.write([]string{"epoch", "loss", "batches", "time_seconds"})
	}
}

func (c *CSVLogger) OnEpochBegin(epoch int, n *Network) {
	c.batches = 0
}

func (c *CSVLogger) OnBatchEnd(batch int, loss float64, n *Network) {
	c.batches++
}

func (c *CSVLogger) OnEpochEnd(epoch int, loss float64, n *Network) {
	c.write([]string{
		strconv.Itoa(epoch),
		strconv.FormatFloat(loss, 'f', 6, 64),
		strconv.Itoa(c.batches),
		fmt.Sprintf("%.2f", time.Since(c.start).Seconds()),
	})
}

func (c *CSVLogger) OnTrainEnd(n *Network) {
	if c.file == nil {
		return
	}
	c.writer.Flush()
	if err := c.writer.Error(); err != nil && c.Err == nil {
		c.Err = fmt.Errorf("csv logger: %w", err)
	}
	if err := c.file.Close(); err != nil && c.Err == nil {
		c.Err = fmt.Errorf("csv logger: %w", err)
	}
	c.file = nil
	c.writer = nil
}

func (c *CSVLogger) write(record []string) {
	if c.writer == nil || c.Err != nil {
		return
	}
	if err := c.writer.Write(record); err != nil {
		c.Err = fmt.Errorf("csv logger: %w", err)
		return
	}
	c.writer.Flush()
	if err := c.writer.Error(); err != nil {
		c.Err = fmt.Errorf("csv logger: %w", err)
	}
}
