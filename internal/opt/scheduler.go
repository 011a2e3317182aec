package opt

import "math"

// Scheduler defines the interface for learning rate schedulers.
type Scheduler interface {
	Step()
	StepWithLoss(loss float64)
	GetLR() float64
}

// BaseScheduler provides default implementations for Scheduler.
type BaseScheduler struct{}

func (s BaseScheduler) Step()                     {}
func (s BaseScheduler) StepWithLoss(loss float64) {}

// StepLR multiplies the learning rate by gamma every stepSize epochs.
type StepLR struct {
	BaseScheduler
	optimizer LRSetter
	stepSize  int
	gamma     float64
	lastEpoch int
}

func NewStepLR(optimizer LRSetter, stepSize int, gamma float64) *StepLR {
	return &StepLR{
		optimizer: optimizer,
		stepSize:  max(stepSize, 1),
		gamma:     gamma,
	}
}

func (s *StepLR) Step() {
	s.lastEpoch++
	if s.lastEpoch%s.stepSize == 0 {
		s.optimizer.SetLR(s.optimizer.LR() * s.gamma)
	}
}

func (s *StepLR) GetLR() float64 { return s.optimizer.LR() }

// ExponentialLR multiplies the learning rate by gamma every epoch.
type ExponentialLR struct {
	BaseScheduler
	optimizer LRSetter
	gamma     float64
}

func NewExponentialLR(optimizer LRSetter, gamma float64) *ExponentialLR {
	return &ExponentialLR{optimizer: optimizer, gamma: gamma}
}

func (s *ExponentialLR) Step() {
	s.optimizer.SetLR(s.optimizer.LR() * s.gamma)
}

func (s *ExponentialLR) GetLR() float64 { return s.optimizer.LR() }

// ReduceLROnPlateau reduces learning rate when a metric has stopped improving.
type ReduceLROnPlateau struct {
	BaseScheduler
	optimizer LRSetter
	factor    float64
	patience  int
	threshold float64
	cooldown  int
	minLR     float64

	bestLoss        float64
	numBadEpochs    int
	cooldownCounter int
}

func NewReduceLROnPlateau(optimizer LRSetter, factor float64, patience int, threshold, minLR float64) *ReduceLROnPlateau {
	return &ReduceLROnPlateau{
		optimizer: optimizer,
		factor:    factor,
		patience:  patience,
		threshold: threshold,
		minLR:     minLR,
		bestLoss:  math.Inf(1),
	}
}

// SetCooldown sets the number of epochs to wait after a reduction.
func (s *ReduceLROnPlateau) SetCooldown(epochs int) { s.cooldown = epochs }

func (s *ReduceLROnPlateau) StepWithLoss(currentLoss float64) {
	if s.cooldownCounter > 0 {
		s.cooldownCounter--
		return
	}

	if currentLoss < s.bestLoss-s.threshold {
		s.bestLoss = currentLoss
		s.numBadEpochs = 0
	} else {
		s.numBadEpochs++
	}

	if s.numBadEpochs >= s.patience {
		s.optimizer.SetLR(math.Max(s.optimizer.LR()*s.factor, s.minLR))
		s.numBadEpochs = 0
		s.cooldownCounter = s.cooldown
	}
}

func (s *ReduceLROnPlateau) GetLR() float64 { return s.optimizer.LR() }
