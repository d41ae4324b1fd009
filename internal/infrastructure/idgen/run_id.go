package idgen

import (
	"io"
	"time"

	"github.com/oklog/ulid/v2"
)

// RunIDGenerator hands out the run_id attached to every log line of a replay.
// IDs are ULIDs, so runs sort by start time.
type RunIDGenerator struct {
	now     func() time.Time
	entropy io.Reader
}

// NewRunIDGenerator returns a generator backed by the wall clock and
// monotonic entropy.
func NewRunIDGenerator() *RunIDGenerator {
	return &RunIDGenerator{
		now:     time.Now,
		entropy: ulid.DefaultEntropy(),
	}
}

// Generate returns a new run id.
func (g *RunIDGenerator) Generate() string {
	return ulid.MustNew(ulid.Timestamp(g.now()), g.entropy).String()
}
