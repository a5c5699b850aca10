package feed

import (
	"testing"
	"time"
)

func TestQualityTrackerStdDev(t *testing.T) {
	q := NewQualityTracker(200.0)

	if got := q.StdDev("T1"); got != 0 {
		t.Errorf("empty StdDev() = %f, want 0", got)
	}

	now := time.Now()
	for i := 0; i < 10; i++ {
		q.Update("T1", 66, now.Add(time.Duration(i)*time.Second))
	}
	if got := q.StdDev("T1"); got != 0 {
		t.Errorf("constant prices StdDev() = %f, want 0", got)
	}

	q2 := NewQualityTracker(200.0)
	prices := []float64{66, 67, 68, 69, 70}
	for i, p := range prices {
		q2.Update("T2", p, now.Add(time.Duration(i)*time.Minute))
	}
	got := q2.StdDev("T2")
	if got < 1.4 || got > 1.7 {
		t.Errorf("varying prices StdDev() = %f, want ~1.58", got)
	}
}

func TestQualityTrackerIsSafe(t *testing.T) {
	tests := []struct {
		name      string
		prices    []float64
		maxStdDev float64
		want      bool
	}{
		{name: "no samples safe", prices: nil, maxStdDev: 20, want: true},
		{name: "one sample safe", prices: []float64{60}, maxStdDev: 20, want: true},
		{name: "calm market safe", prices: []float64{60, 60, 61, 59, 60}, maxStdDev: 20, want: true},
		{name: "volatile market unsafe", prices: []float64{10, 90, 5, 95, 1}, maxStdDev: 20, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := NewQualityTracker(tt.maxStdDev)
			now := time.Now()
			for i, p := range tt.prices {
				q.Update("T", p, now.Add(time.Duration(i)*time.Minute))
			}
			if got := q.IsSafe("T"); got != tt.want {
				t.Errorf("IsSafe() = %v, want %v (stddev=%.2f)", got, tt.want, q.StdDev("T"))
			}
		})
	}
}

func TestQualityTrackerTrimsOldSamples(t *testing.T) {
	q := NewQualityTracker(200.0)
	now := time.Now()

	q.Update("T", 60, now.Add(-20*time.Minute))
	q.Update("T", 61, now.Add(-18*time.Minute))
	q.Update("T", 62, now.Add(-5*time.Minute))
	q.Update("T", 63, now.Add(-2*time.Minute))
	q.Update("T", 64, now)

	if got := q.SampleCount("T"); got != 3 {
		t.Errorf("after trim, SampleCount() = %d, want 3", got)
	}
}
