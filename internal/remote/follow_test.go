package remote

import (
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"logscout/internal/logs"
)

// pipeStream feeds lines to the follower through an in-memory pipe and
// records the kill.
type pipeStream struct {
	r *io.PipeReader
	w *io.PipeWriter

	mu     sync.Mutex
	killed bool
}

func newPipeStream() *pipeStream {
	r, w := io.Pipe()
	return &pipeStream{r: r, w: w}
}

func (s *pipeStream) Read(p []byte) (int, error) { return s.r.Read(p) }

func (s *pipeStream) Kill() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.killed = true
	return s.w.Close()
}

func (s *pipeStream) wasKilled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.killed
}

func (s *pipeStream) writeLine(t *testing.T, line string) {
	t.Helper()
	if _, err := s.w.Write([]byte(line + "\n")); err != nil {
		t.Fatalf("write line: %v", err)
	}
}

// streamConn hands out a fixed stream and a canned container id.
type streamConn struct {
	fakeConn
	stream *pipeStream
}

func (c *streamConn) Stream(string) (remoteStream, error) {
	return c.stream, nil
}

func newTestFollower(c conn) *Follower {
	f := NewFollower(dialerFor(c), "my-app")
	f.pollInterval = 5 * time.Millisecond
	return f
}

func TestFollowDeliversFilteredEntries(t *testing.T) {
	stream := newPipeStream()
	c := &streamConn{fakeConn: fakeConn{container: "abc123"}, stream: stream}
	f := newTestFollower(c)

	ch, session, err := f.Follow("host1", logs.Query{Include: []string{"error"}})
	require.NoError(t, err)
	defer session.Stop()

	stream.writeLine(t, "2026-03-01T10:00:00Z ERROR boom")
	stream.writeLine(t, "2026-03-01T10:00:01Z INFO fine")
	stream.writeLine(t, "2026-03-01T10:00:02Z another ERROR")

	var got []logs.Entry
	timeout := time.After(2 * time.Second)
	for len(got) < 2 {
		select {
		case entry := <-ch:
			got = append(got, entry)
		case <-timeout:
			t.Fatalf("timed out waiting for entries, got %d", len(got))
		}
	}

	assert.Equal(t, "ERROR boom", got[0].Message)
	assert.Equal(t, "another ERROR", got[1].Message)
	assert.Equal(t, "host1", got[0].Group)
}

func TestFollowStopKillsRemoteProcess(t *testing.T) {
	stream := newPipeStream()
	c := &streamConn{fakeConn: fakeConn{container: "abc123"}, stream: stream}
	f := newTestFollower(c)

	ch, session, err := f.Follow("host1", logs.Query{})
	require.NoError(t, err)

	session.Stop()

	// Teardown must happen within a couple of poll intervals.
	select {
	case <-session.Done():
	case <-time.After(10 * f.pollInterval):
		t.Fatalf("session did not stop within bounded time")
	}

	assert.True(t, stream.wasKilled(), "remote process must be killed on stop")
	assert.True(t, session.Stopped())

	// Channel is closed: no further deliveries.
	for range ch {
		t.Fatalf("unexpected entry after stop")
	}
}

func TestFollowEndsOnEOF(t *testing.T) {
	stream := newPipeStream()
	c := &streamConn{fakeConn: fakeConn{container: "abc123"}, stream: stream}
	f := newTestFollower(c)

	ch, session, err := f.Follow("host1", logs.Query{})
	require.NoError(t, err)

	stream.writeLine(t, "2026-03-01T10:00:00Z last words")
	require.NoError(t, stream.w.Close())

	var got []string
	for entry := range ch {
		got = append(got, entry.Message)
	}

	select {
	case <-session.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("session did not finish after EOF")
	}

	assert.Equal(t, []string{"last words"}, got)
	assert.True(t, session.Stopped())
}

func TestFollowDiscoveryFailure(t *testing.T) {
	c := &streamConn{fakeConn: fakeConn{container: ""}, stream: newPipeStream()}
	f := newTestFollower(c)

	_, _, err := f.Follow("host1", logs.Query{})
	var derr *DiscoveryError
	require.ErrorAs(t, err, &derr)
	assert.True(t, c.closed, "connection must be released on discovery failure")
}

func TestFollowSessionStopIdempotent(t *testing.T) {
	stream := newPipeStream()
	c := &streamConn{fakeConn: fakeConn{container: "abc123"}, stream: stream}
	f := newTestFollower(c)

	_, session, err := f.Follow("host1", logs.Query{})
	require.NoError(t, err)

	session.Stop()
	session.Stop()

	select {
	case <-session.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("session did not stop")
	}
}
