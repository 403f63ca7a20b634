package utils

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsAddrAvailable(t *testing.T) {
	assert.True(t, IsAddrAvailable("127.0.0.1:0"), "port 0 should always be available (OS picks free port)")
}

func TestIsAddrAvailable_PortInUse(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err, "failed to create test listener")
	defer listener.Close()

	assert.False(t, IsAddrAvailable(listener.Addr().String()))
}

func TestIsAddrAvailable_InvalidAddr(t *testing.T) {
	assert.False(t, IsAddrAvailable("not-an-address"))
}
