package service

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stake-plus/simd-tracker/src/summaries"
	"github.com/stake-plus/simd-tracker/src/syncer"
)

type recordingModule struct {
	name     string
	startErr error
	log      *[]string
	mu       *sync.Mutex
}

func (r recordingModule) Name() string { return r.name }

func (r recordingModule) Start(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	*r.log = append(*r.log, "start "+r.name)
	return r.startErr
}

func (r recordingModule) Stop(context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	*r.log = append(*r.log, "stop "+r.name)
}

func TestManagerStartsInOrderAndStopsInReverse(t *testing.T) {
	var log []string
	var mu sync.Mutex
	mod := func(name string, err error) Module {
		return recordingModule{name: name, startErr: err, log: &log, mu: &mu}
	}

	m := NewManager(nil, mod("a", nil))
	require.NoError(t, m.Add(mod("b", nil)))
	require.NoError(t, m.Start(context.Background()))
	assert.Error(t, m.Add(mod("c", nil)))
	assert.Error(t, m.Start(context.Background()))
	m.Stop(context.Background())

	assert.Equal(t, []string{"start a", "start b", "stop b", "stop a"}, log)
}

func TestManagerRollsBackOnFailure(t *testing.T) {
	var log []string
	var mu sync.Mutex
	m := NewManager(nil,
		recordingModule{name: "a", log: &log, mu: &mu},
		recordingModule{name: "b", startErr: errors.New("port in use"), log: &log, mu: &mu},
		recordingModule{name: "c", log: &log, mu: &mu},
	)

	err := m.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "start b: port in use")
	assert.Equal(t, []string{"start a", "start b", "stop a"}, log)
}

type countingSyncer struct{ calls atomic.Int32 }

func (c *countingSyncer) SyncAll(context.Context, syncer.PROptions, syncer.DiscussionOptions) syncer.AllResult {
	c.calls.Add(1)
	return syncer.AllResult{Errors: map[string]string{"prs": "quota"}}
}

type countingSummaries struct{ calls atomic.Int32 }

func (c *countingSummaries) Run(context.Context) (summaries.Result, error) {
	c.calls.Add(1)
	return summaries.Result{}, nil
}

func TestSchedulerRunsSyncThenSummaries(t *testing.T) {
	s := &countingSyncer{}
	sum := &countingSummaries{}
	sched := NewScheduler(s, sum, 10*time.Millisecond, nil)

	require.NoError(t, sched.Start(context.Background()))
	assert.Eventually(t, func() bool { return sum.calls.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)
	sched.Stop(context.Background())

	ran := s.calls.Load()
	assert.GreaterOrEqual(t, ran, sum.calls.Load())
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, ran, s.calls.Load())
}

func TestSchedulerRejectsZeroInterval(t *testing.T) {
	assert.Error(t, NewScheduler(&countingSyncer{}, nil, 0, nil).Start(context.Background()))
}

func TestHTTPServerServesUntilStopped(t *testing.T) {
	h := NewHTTPServer("127.0.0.1:0", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "ok")
	}), nil)
	require.NoError(t, h.Start(context.Background()))

	resp, err := http.Get("http://" + h.Addr().String())
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, "ok", string(body))

	h.Stop(context.Background())
	_, err = http.Get("http://" + h.Addr().String())
	assert.Error(t, err)
}
