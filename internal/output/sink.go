// Package output persists a block-assignment table: one (GEOID, DISTRICT)
// row per target in target-set order, DISTRICT empty when unassigned.
package output

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/sells-group/blockassign/internal/match"
)

// Column headers of the written table.
const (
	HeaderTarget = "GEOID"
	HeaderSource = "DISTRICT"
)

// Sink writes a run's assignments somewhere.
type Sink interface {
	Name() string
	Write(ctx context.Context, res *match.Result) error
}

// Save writes res through sink and reports success. Errors and panics are
// logged, never returned.
func Save(ctx context.Context, sink Sink, res *match.Result) (ok bool) {
	log := zap.L().With(zap.String("component", "output"), zap.String("sink", sink.Name()))

	defer func() {
		if r := recover(); r != nil {
			log.Error("sink panicked", zap.String("panic", fmt.Sprint(r)))
			ok = false
		}
	}()

	if err := sink.Write(ctx, res); err != nil {
		log.Error("write failed", zap.Error(err))
		return false
	}
	log.Info("assignments written", zap.Int("rows", res.Assignments.Len()))
	return true
}

// row is one line of the block-assignment table.
type row struct {
	GEOID    string `csv:"GEOID"`
	District string `csv:"DISTRICT"`
}

func rows(a *match.Assignments) []row {
	out := make([]row, a.Len())
	for i, e := range a.Entries() {
		out[i] = row{GEOID: e.TargetID, District: e.SourceID}
	}
	return out
}
