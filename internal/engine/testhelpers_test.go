package engine

import (
	"log/slog"
	"testing"

	"github.com/roach88/flexiq/internal/testutil"
)

// newTestAdapter creates an adapter over a recording transport with
// deterministic ids and seq values.
func newTestAdapter(t *testing.T, opts Options, replies ...testutil.Reply) (*Adapter, *testutil.RecordingTransport) {
	t.Helper()
	rt := testutil.NewRecordingTransport(replies...)
	a := New(rt, opts,
		WithClock(testutil.NewDeterministicClock()),
		WithIDGenerator(testutil.NewSequentialIDGenerator("req")),
		WithLogger(slog.New(slog.DiscardHandler)),
	)
	return a, rt
}
