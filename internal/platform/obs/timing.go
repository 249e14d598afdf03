package obs

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

type ctxKey string

const RunIDKey ctxKey = "run_id"

// WithRunID tags ctx so every timed operation below it logs the run id.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, RunIDKey, runID)
}

func RunID(ctx context.Context) string {
	id, _ := ctx.Value(RunIDKey).(string)
	return id
}

// Time logs the duration of an operation. Use as
//
//	defer obs.Time(ctx, "op")(&err)
func Time(ctx context.Context, name string) func(errp *error) {
	start := time.Now()
	runID := RunID(ctx)

	return func(errp *error) {
		dur := time.Since(start)

		if errp != nil && *errp != nil {
			log.Error().Err(*errp).Str("run_id", runID).Str("op", name).Int64("dur_ms", dur.Milliseconds()).Msg("operation failed")
			return
		}
		log.Debug().Str("run_id", runID).Str("op", name).Int64("dur_ms", dur.Milliseconds()).Msg("operation done")
	}
}
