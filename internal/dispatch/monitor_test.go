package dispatch

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageharvest/pageharvest/internal/entity"
)

func TestTickAlive(t *testing.T) {
	tests := []struct {
		current int
		last    int
		want    bool
	}{
		{0, 0, true},
		{0, 59, true},
		{0, 58, true},
		{0, 57, false},
		{0, 30, false},
		{1, 59, true},
		{1, 58, false},
		{30, 30, true},
		{30, 28, true},
		{30, 27, false},
		{59, 57, true},
		{59, 0, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tickAlive(tt.current, tt.last),
			"current=%d last=%d", tt.current, tt.last)
	}
}

func TestCheckMarksStaleWorkersOffline(t *testing.T) {
	workers := &fakeWorkerRepo{active: []entity.Worker{
		{ID: "000000000", LastHeartbeatTick: 29},
		{ID: "000000001", LastHeartbeatTick: 10},
		{ID: "000000002", LastHeartbeatTick: 30},
	}}
	m := NewMonitor(workers, discardLogger())
	m.tick = func() int { return 30 }

	dead, err := m.Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"000000001"}, dead)
	assert.Equal(t, []string{"000000001"}, workers.markedOffline)
}

func TestCheckNobodyDead(t *testing.T) {
	workers := &fakeWorkerRepo{active: []entity.Worker{
		{ID: "000000000", LastHeartbeatTick: 5},
	}}
	m := NewMonitor(workers, discardLogger())
	m.tick = func() int { return 5 }

	dead, err := m.Check(context.Background())
	require.NoError(t, err)
	assert.Empty(t, dead)
	assert.Empty(t, workers.markedOffline)
}

func TestCheckContinuesWhenMarkOfflineFails(t *testing.T) {
	workers := &fakeWorkerRepo{
		active: []entity.Worker{
			{ID: "000000000", LastHeartbeatTick: 0},
			{ID: "000000001", LastHeartbeatTick: 0},
		},
		offlineErr: map[string]error{"000000000": errors.New("store hiccup")},
	}
	m := NewMonitor(workers, discardLogger())
	m.tick = func() int { return 30 }

	dead, err := m.Check(context.Background())
	require.NoError(t, err)
	// Both stale workers are reported dead even though one update failed.
	assert.Equal(t, []string{"000000000", "000000001"}, dead)
	assert.Equal(t, []string{"000000000", "000000001"}, workers.markedOffline)
}

func TestCheckPropagatesListFailure(t *testing.T) {
	workers := &fakeWorkerRepo{activeErr: errors.New("store down")}
	m := NewMonitor(workers, discardLogger())
	m.tick = func() int { return 0 }

	_, err := m.Check(context.Background())
	assert.Error(t, err)
}
