package netspec

import (
	"time"
)

type Job struct {
	ID        int
	Name      string
	// e.g. "train" or "test"
	Type      string
	Metadata  string
	StartTime time.Time
	State     string

	// If the job succeeds, Done=true and Error="".
	// If it fails, then Done=true and Error is set.
	// If Done=false it implies the job is still running.
	Done  bool
	Error string
}

// TrainJobState is the JSON state of a running or finished train job.
type TrainJobState struct {
	Epochs int
	Loss   []float64
	Metric []float64
	// Set by test jobs.
	Evaluation *Evaluation `json:",omitempty"`
}

func (s *TrainJobState) Update(epoch int, loss float64, metric float64) {
	if epoch+1 > s.Epochs {
		s.Epochs = epoch + 1
	}
	s.Loss = append(s.Loss, loss)
	s.Metric = append(s.Metric, metric)
}
