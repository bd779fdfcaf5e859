package isolation

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSplitSubnetDerivesGatewayAndHost(t *testing.T) {
	gateway, host := splitSubnet("172.16.5.0/24")
	require.Equal(t, "172.16.5.1", gateway)
	require.Equal(t, "172.16.5.2", host)
}

func TestSplitSubnetFallsBackOnMalformedInput(t *testing.T) {
	gateway, host := splitSubnet("not-a-subnet")
	require.Equal(t, "172.31.0.1", gateway)
	require.Equal(t, "172.31.0.2", host)
}
