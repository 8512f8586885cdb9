package match

import (
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// progress logs every `every` processed sources and at completion.
type progress struct {
	total     int64
	every     int64
	processed atomic.Int64
	start     time.Time
	log       *zap.Logger
}

func newProgress(total, every int, log *zap.Logger) *progress {
	if every <= 0 {
		every = 100
	}
	return &progress{total: int64(total), every: int64(every), start: time.Now(), log: log}
}

func (p *progress) increment() {
	n := p.processed.Add(1)
	if n%p.every != 0 && n != p.total {
		return
	}
	elapsed := time.Since(p.start)
	rate := 0.0
	if s := elapsed.Seconds(); s > 0 {
		rate = float64(n) / s
	}
	p.log.Info("scoring progress",
		zap.Int64("processed", n),
		zap.Int64("total", p.total),
		zap.Float64("pct", float64(n)/float64(p.total)*100),
		zap.Float64("sources_per_sec", rate),
	)
}
