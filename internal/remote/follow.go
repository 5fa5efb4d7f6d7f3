package remote

import (
	"bufio"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"logscout/internal/debug"
	"logscout/internal/logs"
)

const (
	// followBuffer bounds the delivery channel; when the consumer falls
	// behind, further matches are dropped rather than blocking the
	// reader.
	followBuffer = 1000
	// stopPollInterval bounds how long a stop request can go unobserved
	// while the stream is idle.
	stopPollInterval = 100 * time.Millisecond
)

// Follow session states.
const (
	stateRunning int32 = iota
	stateStopRequested
	stateStopped
)

// FollowSession is the handle to one active tail. Stop requests
// cooperative shutdown; the background reader observes it within the
// poll interval, kills the remote process and closes the delivery
// channel.
type FollowSession struct {
	state atomic.Int32
	done  chan struct{}
}

// Stop requests shutdown. Safe to call more than once.
func (s *FollowSession) Stop() {
	s.state.CompareAndSwap(stateRunning, stateStopRequested)
}

// Done is closed once the remote process has been released and the
// delivery channel closed.
func (s *FollowSession) Done() <-chan struct{} {
	return s.done
}

// Stopped reports whether teardown has completed.
func (s *FollowSession) Stopped() bool {
	return s.state.Load() == stateStopped
}

// Follower tails container logs from a remote host. Only one session
// per Follower should be active at a time; starting a new one implies
// the previous session was stopped.
type Follower struct {
	Dialer  *Dialer
	Service string

	buffer       int
	pollInterval time.Duration
}

// NewFollower creates a follower for service using dialer.
func NewFollower(dialer *Dialer, service string) *Follower {
	return &Follower{
		Dialer:       dialer,
		Service:      service,
		buffer:       followBuffer,
		pollInterval: stopPollInterval,
	}
}

// Follow discovers the service container on host, starts a continuous
// log stream and returns the filtered delivery channel together with the
// session handle. The channel is closed when the session stops, the
// stream ends, or the remote side fails.
func (f *Follower) Follow(host string, q logs.Query) (<-chan logs.Entry, *FollowSession, error) {
	c, err := f.Dialer.Dial(host)
	if err != nil {
		return nil, nil, err
	}

	containerID, err := findContainer(c, f.Service, host)
	if err != nil {
		c.Close()
		return nil, nil, err
	}

	cmd := fmt.Sprintf("docker logs %s --timestamps --follow", containerID)
	if !q.Start.IsZero() {
		cmd += " --since " + q.Start.UTC().Format(time.RFC3339)
	}

	stream, err := c.Stream(cmd)
	if err != nil {
		c.Close()
		return nil, nil, fmt.Errorf("follow on %s: %w", host, err)
	}

	debug.Logger().Debug("following remote logs",
		zap.String("host", host),
		zap.String("command", cmd))

	out := make(chan logs.Entry, f.buffer)
	session := &FollowSession{done: make(chan struct{})}
	go f.run(c, stream, out, session, q, host)

	return out, session, nil
}

// run pumps the remote stream into the delivery channel until stop is
// requested or the stream ends. The stop flag is polled even while no
// lines arrive so cancellation latency stays bounded.
func (f *Follower) run(c conn, stream remoteStream, out chan logs.Entry, session *FollowSession, q logs.Query, host string) {
	quit := make(chan struct{})
	lines := make(chan string)

	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(stream)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-quit:
				return
			}
		}
	}()

	defer func() {
		close(quit)
		_ = stream.Kill()
		_ = c.Close()
		session.state.Store(stateStopped)
		close(out)
		close(session.done)
	}()

	ticker := time.NewTicker(f.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case line, ok := <-lines:
			if !ok {
				// EOF or stream failure: the remote side is gone.
				return
			}
			entry, parsed := parseLine(line, host, f.Service)
			if !parsed || !q.Matches(entry.Message) {
				continue
			}
			select {
			case out <- entry:
			default:
				// Consumer slow or gone: drop rather than block.
			}
		case <-ticker.C:
			if session.state.Load() == stateStopRequested {
				return
			}
		}
	}
}
