package host

import (
	"sync"

	"github.com/rs/zerolog"
)

// DefaultMinWorkingSet is the address range a process must be able to
// reserve before chat is enabled.
const DefaultMinWorkingSet = 4 << 30

// NewProbe returns a probe that tries to reserve minBytes once and caches
// the answer for the life of the process.
func NewProbe(minBytes int, log zerolog.Logger) func() bool {
	if minBytes <= 0 {
		minBytes = DefaultMinWorkingSet
	}
	return sync.OnceValue(func() bool {
		if err := reserve(minBytes); err != nil {
			log.Warn().Err(err).Int("bytes", minBytes).Msg("working set reservation failed")
			return false
		}
		log.Debug().Int("bytes", minBytes).Msg("working set reservation succeeded")
		return true
	})
}
