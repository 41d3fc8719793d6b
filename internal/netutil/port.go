package netutil

import (
	"errors"
	"fmt"
	"net"
	"strconv"
)

// SelectPort returns preferred when it can be listened on at address,
// otherwise the first free candidate. With no free candidate the kernel
// picks an ephemeral port.
func SelectPort(address string, preferred int, candidates []int) (int, error) {
	if preferred > 0 {
		ok, err := IsAddrAvailable(joinHostPort(address, preferred))
		if err != nil {
			return 0, err
		}
		if ok {
			return preferred, nil
		}
	}

	for _, port := range candidates {
		ok, err := IsAddrAvailable(joinHostPort(address, port))
		if err != nil {
			return 0, err
		}
		if ok {
			return port, nil
		}
	}

	return FreePort(address)
}

// FreePort asks the kernel for an unused TCP port on address.
func FreePort(address string) (int, error) {
	ln, err := net.Listen("tcp", joinHostPort(address, 0))
	if err != nil {
		return 0, fmt.Errorf("no free port on %s: %w", address, err)
	}
	defer func() { _ = ln.Close() }()

	tcpAddr, ok := ln.Addr().(*net.TCPAddr)
	if !ok {
		return 0, errors.New("unexpected listener address type")
	}
	return tcpAddr.Port, nil
}

// IsAddrAvailable returns true when an address can be listened on.
func IsAddrAvailable(addr string) (bool, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return false, nil
	}
	if closeErr := ln.Close(); closeErr != nil {
		return false, closeErr
	}
	return true, nil
}

func joinHostPort(address string, port int) string {
	return net.JoinHostPort(address, strconv.Itoa(port))
}
