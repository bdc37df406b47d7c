// Package ports provides port availability checking.
package ports

import (
	"fmt"
	"net"
)

// Check reports an error when the TCP address cannot be bound.
func Check(host string, port int) error {
	ln, err := net.Listen("tcp", net.JoinHostPort(host, fmt.Sprint(port)))
	if err != nil {
		return fmt.Errorf("port %d is not available: %w", port, err)
	}
	_ = ln.Close()
	return nil
}
