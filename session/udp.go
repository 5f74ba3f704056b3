// Copyright 2026 The Riglink Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"fmt"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/riglink-foundation/riglink/action"
)

// actionSocket is the non-blocking UDP socket the action channel rides
// on. The socket is connected to the descriptor's control endpoint, so
// sends are plain send(2) calls and a full socket buffer surfaces as
// EAGAIN instead of blocking the feedback loop.
type actionSocket struct {
	mu     sync.Mutex
	fd     int
	closed bool
}

func newActionSocket(address [4]byte, port uint16) (*actionSocket, error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_DGRAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("action socket: %w", err)
	}
	sa := &unix.SockaddrInet4{Port: int(port)}
	sa.Addr = address
	if err := unix.Connect(fd, sa); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("action socket: connecting: %w", err)
	}
	return &actionSocket{fd: fd}, nil
}

// send transmits one datagram without blocking.
func (s *actionSocket) send(datagram []byte) action.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return action.StatusFailed
	}
	if err := unix.Send(s.fd, datagram, 0); err != nil {
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			return action.StatusWouldBlock
		}
		return action.StatusFailed
	}
	return action.StatusComplete
}

// sendBlocking transmits one datagram, polling for socket space while
// the kernel reports backpressure.
func (s *actionSocket) sendBlocking(datagram []byte) action.Status {
	for {
		status := s.send(datagram)
		if status != action.StatusWouldBlock {
			return status
		}

		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return action.StatusFailed
		}
		fd := s.fd
		s.mu.Unlock()

		fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLOUT}}
		if _, err := unix.Poll(fds, 100); err != nil && err != unix.EINTR {
			return action.StatusFailed
		}
	}
}

// sendAsync transmits in the background, reporting through result.
func (s *actionSocket) sendAsync(datagram []byte, result *action.AsyncResult) {
	go func() {
		result.Store(s.sendBlocking(datagram))
	}()
}

// close shuts the socket. Idempotent.
func (s *actionSocket) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	unix.Close(s.fd)
}
