package heterodyne

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usnistgov/heterodyne/internal/rundb"
)

// TestSourceControl exercises the RPC methods directly, with a discard
// sink in place of the ZMQ publisher.
func TestSourceControl(t *testing.T) {
	sc := NewSourceControl()
	sc.newSink = func() (DutySink, error) { return DiscardSink{}, nil }
	sc.startDB = func(*rundb.RunMessage, <-chan struct{}) *rundb.Connection {
		return rundb.DummyConnection()
	}
	updates := make(chan ClientUpdate, 32)
	sc.clientUpdates = updates
	sc.synth.updates = updates

	var okay bool
	dummy := "dummy"
	require.Error(t, sc.Start(&dummy, &okay), "cannot start before configuring")

	config := SynthSourceConfig{FramesPerBlock: 128, Freq0: 440, Amp0: 0.5}
	require.NoError(t, sc.ConfigureSynthSource(&config, &okay))
	assert.True(t, okay)

	require.NoError(t, sc.Start(&dummy, &okay))
	require.True(t, okay)
	assert.True(t, sc.status.Running)
	assert.Equal(t, sc.synth.RunID(), sc.status.RunID)
	assert.Equal(t, 128, sc.status.FramesPerBlock)
	require.Error(t, sc.Start(&dummy, &okay), "cannot start twice")
	require.Error(t, sc.ConfigureSynthSource(&config, &okay), "cannot configure while running")

	require.NoError(t, sc.SetTargets(&TargetsObject{Freq0: 1000, Amp0: 0.1}, &okay))
	require.NoError(t, sc.SendAllStatus(&dummy, &okay))

	require.NoError(t, sc.Stop(&dummy, &okay))
	assert.False(t, sc.status.Running)
	assert.Empty(t, sc.status.RunID)
	require.Error(t, sc.Stop(&dummy, &okay), "cannot stop twice")

	// The broadcasts above must have landed without blocking.
	assert.NotEmpty(t, updates)
	tags := make(map[string]bool)
	for len(updates) > 0 {
		tags[(<-updates).Tag] = true
	}
	assert.True(t, tags["STATUS"], "status broadcasts sent")
}
