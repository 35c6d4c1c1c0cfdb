package ports

import "time"

type MetricsPort interface {
	ObserveStep(repo string, phase string, outcome string, duration time.Duration)
	ObserveMergeablePoll(repo string, attempts int)
	Flush() error
}
