package status

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/librarydesk/internal/logging"
)

type stubProber struct {
	mu     sync.Mutex
	dbErr  error
	checks atomic.Int32
}

func (s *stubProber) Health(context.Context) error {
	s.checks.Add(1)
	return nil
}

func (s *stubProber) DBStatus(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dbErr
}

func (s *stubProber) setDBErr(err error) {
	s.mu.Lock()
	s.dbErr = err
	s.mu.Unlock()
}

func TestLatestStartsUnknown(t *testing.T) {
	p := NewPoller(&stubProber{}, time.Minute, logging.Discard())
	snap := p.Latest()
	assert.Equal(t, StateUnknown, snap.Backend.State)
	assert.Equal(t, StateUnknown, snap.Database.State)
	assert.True(t, snap.CheckedAt.IsZero())
}

func TestCheckNotifiesOnChangeOnly(t *testing.T) {
	prober := &stubProber{}
	p := NewPoller(prober, time.Minute, logging.Discard())
	var seen []Snapshot
	p.OnChange(func(s Snapshot) { seen = append(seen, s) })
	ctx := context.Background()

	snap := p.Check(ctx)
	assert.Equal(t, StateUp, snap.Backend.State)
	assert.Equal(t, StateUp, snap.Database.State)
	require.Len(t, seen, 1)

	p.Check(ctx)
	assert.Len(t, seen, 1)

	prober.setDBErr(errors.New("db locked"))
	snap = p.Check(ctx)
	assert.Equal(t, StateDown, snap.Database.State)
	assert.Equal(t, "db locked", snap.Database.Error)
	assert.Len(t, seen, 2)
	assert.Equal(t, snap, p.Latest())
}

func TestRunChecksImmediatelyAndStops(t *testing.T) {
	prober := &stubProber{}
	p := NewPoller(prober, 10*time.Millisecond, logging.Discard())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return prober.checks.Load() >= 3 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop")
	}
}
