package index

import (
	"testing"
	"time"
)

func benchmarkBuild(b *testing.B, count int) {
	runs := generateMinuteRuns(count, friday)
	for b.Loop() {
		NewScheduledRunIndex(runs)
	}
}

func BenchmarkBuild_1000(b *testing.B)   { benchmarkBuild(b, 1000) }
func BenchmarkBuild_100000(b *testing.B) { benchmarkBuild(b, 100000) }

func benchmarkQuery(b *testing.B, count int, window time.Duration) {
	idx := NewScheduledRunIndex(generateMinuteRuns(count, friday))
	start := friday.Add(time.Duration(count/20) * time.Minute)
	for b.Loop() {
		idx.Query(start, start.Add(window))
	}
}

func BenchmarkQuery_1000Runs_1MinWindow(b *testing.B)    { benchmarkQuery(b, 1000, time.Minute) }
func BenchmarkQuery_100000Runs_1MinWindow(b *testing.B)  { benchmarkQuery(b, 100000, time.Minute) }
func BenchmarkQuery_100000Runs_1HourWindow(b *testing.B) { benchmarkQuery(b, 100000, time.Hour) }

func BenchmarkGenerate_Day_100Schedules(b *testing.B) {
	sources := generateSources(100)
	for b.Loop() {
		Generate(sources, friday, friday.Add(24*time.Hour))
	}
}

func BenchmarkConcurrentQuery_100000Runs(b *testing.B) {
	idx := NewScheduledRunIndex(generateMinuteRuns(100000, friday))
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			idx.Query(friday, friday.Add(time.Minute))
		}
	})
}
