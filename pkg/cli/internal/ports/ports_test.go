package ports

import (
	"net"
	"testing"
)

func TestCheck(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	busy := ln.Addr().(*net.TCPAddr).Port

	if err := Check("127.0.0.1", busy); err == nil {
		t.Errorf("expected port %d to be unavailable", busy)
	}
	if err := Check("127.0.0.1", 0); err != nil {
		t.Errorf("expected an ephemeral port to be available, got %v", err)
	}
}
