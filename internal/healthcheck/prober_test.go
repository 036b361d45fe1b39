package healthcheck

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blueberrycongee/memgate/pkg/types"
)

type stubLister struct {
	models []types.Model
	err    error
	calls  int
}

func (s *stubLister) Models(_ context.Context) ([]types.Model, error) {
	s.calls++
	return s.models, s.err
}

func TestProbeOnce_Success(t *testing.T) {
	lister := &stubLister{models: []types.Model{{ID: "mammouth-default"}, {ID: "mammouth-large"}}}
	p := NewProber(Config{Enabled: true, Timeout: time.Second}, lister, nil)

	p.ProbeOnce(context.Background())

	st := p.Status()
	assert.True(t, st.Healthy)
	assert.False(t, st.LastProbe.IsZero())
	assert.Equal(t, []string{"mammouth-default", "mammouth-large"}, st.Models)
}

func TestProbeOnce_FailureKeepsCachedModels(t *testing.T) {
	lister := &stubLister{models: []types.Model{{ID: "mammouth-default"}}}
	p := NewProber(Config{Enabled: true, Timeout: time.Second}, lister, nil)

	p.ProbeOnce(context.Background())
	require.True(t, p.Status().Healthy)

	lister.err = errors.New("upstream down")
	p.ProbeOnce(context.Background())

	st := p.Status()
	assert.False(t, st.Healthy)
	assert.Equal(t, "upstream down", st.Error)
	assert.Equal(t, []string{"mammouth-default"}, st.Models, "last known models survive a failed probe")
}

func TestStatus_BeforeFirstProbe(t *testing.T) {
	p := NewProber(Config{Enabled: true}, &stubLister{}, nil)

	st := p.Status()
	assert.True(t, st.Healthy)
	assert.True(t, st.LastProbe.IsZero())
	assert.Empty(t, st.Models)
}

func TestStart_DisabledDoesNotProbe(t *testing.T) {
	lister := &stubLister{}
	p := NewProber(Config{Enabled: false, Interval: time.Millisecond}, lister, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)

	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, lister.calls)
}
