package singleinstance

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"screen-ocr-overlay/src/events"
	"screen-ocr-overlay/src/region"
)

// Pusher receives forwarded events.
type Pusher interface {
	Push(e events.Event)
}

// Server marks this process as the resident overlay and accepts commands
// from later invocations.
type Server struct {
	lis    net.Listener
	port   int
	logger *slog.Logger
}

// Listen binds ONLY the start port of the configured range. If occupied,
// another overlay is already running.
func Listen(logger *slog.Logger) (*Server, error) {
	start, _ := getPortRange()
	addr := net.JoinHostPort(residentHost, fmt.Sprint(start))
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("bind %s: %w", addr, err)
	}
	logger.Info("resident listening", "addr", addr)
	return &Server{lis: lis, port: start, logger: logger}, nil
}

// Port returns the bound port.
func (s *Server) Port() int { return s.port }

// Serve forwards each command to out until ctx is cancelled or Close is
// called.
func (s *Server) Serve(ctx context.Context, out Pusher, rc region.Context) error {
	go func() {
		<-ctx.Done()
		_ = s.lis.Close()
	}()
	for {
		c, err := s.lis.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}
		s.handle(c, out, rc)
	}
}

func (s *Server) handle(c net.Conn, out Pusher, rc region.Context) {
	defer c.Close()
	remote := c.RemoteAddr().String()
	_ = c.SetDeadline(time.Now().Add(3 * time.Second))
	line, err := bufio.NewReader(c).ReadString('\n')
	if err != nil {
		s.logger.Debug("dropped connection", "remote", remote, "error", err)
		return
	}
	if line == pingRequest {
		_, _ = c.Write([]byte(pongResponse))
		return
	}
	ev, err := ParseCommand(line, rc)
	if err != nil {
		s.logger.Warn("rejected command", "remote", remote, "error", err)
		_, _ = c.Write([]byte(errorPrefix + err.Error() + "\n"))
		return
	}
	s.logger.Info("forwarded command", "remote", remote, "type", ev.Type())
	out.Push(ev)
	_, _ = c.Write([]byte(okResponse))
}

func (s *Server) Close() error {
	return s.lis.Close()
}
