package search

import "time"

// Recorder receives store observations. Implemented by metrics.SearchRecorder.
type Recorder interface {
	ObserveLoad(events, shingles int, d time.Duration)
	ObserveSearch(useTrigram bool, candidates, results int, d time.Duration, err error)
}

type nopRecorder struct{}

func (nopRecorder) ObserveLoad(int, int, time.Duration) {}
func (nopRecorder) ObserveSearch(bool, int, int, time.Duration, error) {}
