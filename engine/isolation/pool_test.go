package isolation

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSubnetPoolAcquireReleaseRoundTrip(t *testing.T) {
	p := NewSubnetPool(4, "SANDBOXD_TEST_WORKER_UNSET")
	seen := map[string]bool{}
	for i := 0; i < 4; i++ {
		s, ok := p.Acquire()
		require.True(t, ok)
		require.False(t, seen[s], "subnet leased twice: %v", s)
		seen[s] = true
	}
	_, ok := p.Acquire()
	require.False(t, ok, "pool should be exhausted")

	p.Release("172.16.0.0/24")
	s, ok := p.Acquire()
	require.True(t, ok)
	require.Equal(t, "172.16.0.0/24", s)
}

func TestSubnetPoolWorkerOffsetSlicesRange(t *testing.T) {
	t.Setenv("PYTEST_XDIST_WORKER", "gw2")
	p := NewSubnetPool(2, "PYTEST_XDIST_WORKER")
	first, ok := p.Acquire()
	require.True(t, ok)
	require.Contains(t, first, "172.")
	require.NotEqual(t, "172.16.0.0/24", first)
}

func TestWorkerOffsetDefaultsToZeroWhenUnset(t *testing.T) {
	require.Equal(t, 0, workerOffset("SANDBOXD_TEST_WORKER_UNSET"))
}

func TestWorkerOffsetParsesGwPrefix(t *testing.T) {
	t.Setenv("SANDBOXD_TEST_WORKER", "gw5")
	require.Equal(t, 5, workerOffset("SANDBOXD_TEST_WORKER"))
}
