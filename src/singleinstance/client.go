package singleinstance

import (
	"bufio"
	"context"
	"errors"
	"net"
	"strconv"
	"strings"
	"time"
)

// ErrNoResident means no overlay answered in the port range.
var ErrNoResident = errors.New("no resident overlay")

// DetectResidentPort scans the port range and returns (port, true) if a resident responds to PING.
func DetectResidentPort(ctx context.Context) (int, bool) {
	timeout := dialTimeout(ctx, 300*time.Millisecond)
	start, end := getPortRange()
	for port := start; port <= end; port++ {
		addr := net.JoinHostPort(residentHost, strconv.Itoa(port))
		if resp, err := roundTrip(addr, pingRequest, timeout); err == nil && resp == pongResponse {
			return port, true
		}
	}
	return 0, false
}

// Send delivers a command built by KeyCommand or RegionCommand to the
// resident overlay.
func Send(ctx context.Context, command string) error {
	port, ok := DetectResidentPort(ctx)
	if !ok {
		return ErrNoResident
	}
	addr := net.JoinHostPort(residentHost, strconv.Itoa(port))
	resp, err := roundTrip(addr, command, dialTimeout(ctx, 2*time.Second))
	if err != nil {
		return err
	}
	if resp == okResponse {
		return nil
	}
	return errors.New(strings.TrimSpace(strings.TrimPrefix(resp, errorPrefix)))
}

func roundTrip(addr, request string, timeout time.Duration) (string, error) {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return "", err
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(timeout))
	if _, err := conn.Write([]byte(request)); err != nil {
		return "", err
	}
	return bufio.NewReader(conn).ReadString('\n')
}

func dialTimeout(ctx context.Context, def time.Duration) time.Duration {
	if dl, ok := ctx.Deadline(); ok {
		if d := time.Until(dl); d > 0 {
			return d
		}
	}
	return def
}
