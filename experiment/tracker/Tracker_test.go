package tracker

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func episodes() []Episode {
	return []Episode{
		{Number: 0, Training: true, Steps: 10, TotalSteps: 10, Reward: 1},
		{Number: 1, Training: true, Steps: 5, TotalSteps: 15, Reward: -1},
		{Number: 0, Training: false, Steps: 7, TotalSteps: 22, Reward: 3},
	}
}

func TestReturnAndEpisodeLength(t *testing.T) {
	dir := t.TempDir()
	ret := NewReturn(filepath.Join(dir, "return.bin"))
	length := NewEpisodeLength(filepath.Join(dir, "length.bin"))

	for _, e := range episodes() {
		require.NoError(t, ret.Track(e))
		require.NoError(t, length.Track(e))
	}
	require.Equal(t, []float64{1, -1, 3}, ret.Returns())
	require.Equal(t, []float64{10, 5, 7}, length.Lengths())

	require.NoError(t, ret.Save())
	require.NoError(t, length.Save())

	data, err := LoadData(filepath.Join(dir, "return.bin"))
	require.NoError(t, err)
	require.Equal(t, []float64{1, -1, 3}, data)

	data, err = LoadData(filepath.Join(dir, "length.bin"))
	require.NoError(t, err)
	require.Equal(t, []float64{10, 5, 7}, data)

	_, err = LoadData(filepath.Join(dir, "missing.bin"))
	require.Error(t, err)
}

func TestRegister(t *testing.T) {
	ret := NewReturn(filepath.Join(t.TempDir(), "return.bin"))
	eval := Register(ret, false)

	for _, e := range episodes() {
		require.NoError(t, eval.Track(e))
	}
	require.Equal(t, []float64{3}, ret.Returns())
}

func TestRestore(t *testing.T) {
	dir := t.TempDir()
	ret := NewReturn(filepath.Join(dir, "return.bin"))
	length := NewEpisodeLength(filepath.Join(dir, "length.bin"))

	// Nothing saved yet
	require.NoError(t, ret.Restore(5))
	require.Empty(t, ret.Returns())

	for _, e := range episodes() {
		require.NoError(t, ret.Track(e))
		require.NoError(t, length.Track(e))
	}
	require.NoError(t, ret.Save())
	require.NoError(t, length.Save())

	// Only the episodes up to the checkpoint are restored
	ret = NewReturn(filepath.Join(dir, "return.bin"))
	registered := Register(ret, true)
	rs, ok := registered.(Restorer)
	require.True(t, ok)
	require.NoError(t, rs.Restore(2))
	require.Equal(t, []float64{1, -1}, ret.Returns())

	require.NoError(t, registered.Track(Episode{Number: 2, Training: true,
		Steps: 1, Reward: 7}))
	require.Equal(t, []float64{1, -1, 7}, ret.Returns())

	length = NewEpisodeLength(filepath.Join(dir, "length.bin"))
	require.NoError(t, length.Restore(10))
	require.Equal(t, []float64{10, 5, 7}, length.Lengths())

	// Trackers without saved data restore nothing
	require.NoError(t, Register(NewProgress(dir), true).(Restorer).Restore(1))
}

func TestStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metrics.db")
	store, err := NewStore(path)
	require.NoError(t, err)

	for _, e := range episodes() {
		require.NoError(t, store.Track(e))
	}
	require.NoError(t, store.Summarize(2.5))

	train, err := store.Episodes(true)
	require.NoError(t, err)
	require.Equal(t, episodes()[:2], train)

	eval, err := store.Episodes(false)
	require.NoError(t, err)
	require.Equal(t, episodes()[2:], eval)
	require.NoError(t, store.Save())

	// Summaries and evaluation episodes are appended after reopening,
	// even though evaluation numbering starts again from 0
	store, err = NewStore(path)
	require.NoError(t, err)
	second := Episode{Number: 0, Training: false, Steps: 4, TotalSteps: 26,
		Reward: -2}
	require.NoError(t, store.Track(second))
	require.NoError(t, store.Summarize(4))
	means, err := store.Summaries()
	require.NoError(t, err)
	require.Equal(t, []float64{2.5, 4}, means)

	eval, err = store.Episodes(false)
	require.NoError(t, err)
	require.Equal(t, []Episode{episodes()[2], second}, eval)
	require.NoError(t, store.Save())
}

func TestProgress(t *testing.T) {
	dir := t.TempDir()
	p := NewProgress(dir)

	// Nothing tracked, nothing plotted
	require.NoError(t, p.Save())
	_, err := os.Stat(filepath.Join(dir, DurationsPlot))
	require.True(t, os.IsNotExist(err))

	for _, e := range episodes() {
		require.NoError(t, p.Track(e))
	}
	require.NoError(t, p.Summarize(1.5))
	require.NoError(t, p.Save())

	for _, name := range []string{DurationsPlot, RewardsPlot} {
		info, err := os.Stat(filepath.Join(dir, name))
		require.NoError(t, err)
		require.Greater(t, info.Size(), int64(0))
	}
}
