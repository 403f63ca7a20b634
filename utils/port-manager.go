package utils

import (
	"net"
)

// IsAddrAvailable reports whether a TCP listener can be opened on addr ("host:port").
// The daemon parent uses it to fail fast before forking a child that would not bind.
func IsAddrAvailable(addr string) bool {
	Verbose("Checking if %s is available", addr)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		Verbose("error: %v", err)
		return false
	}

	_ = listener.Close()
	return true
}
