package trainer

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/your-org/ppo-trade-agent/internal/config"
	"github.com/your-org/ppo-trade-agent/internal/env"
	"github.com/your-org/ppo-trade-agent/internal/policy"
)

// fakeEnv emits fixed-length episodes whose terminal reward is a
// function of the episode number (1-based).
type fakeEnv struct {
	stepsPerEpisode int
	rewardFn        func(episode int) float64
	episode         int
	step            int
}

func (f *fakeEnv) Reset() []float64 {
	f.episode++
	f.step = 0
	return make([]float64, 17)
}

func (f *fakeEnv) Step(env.Action) ([]float64, float64, bool) {
	f.step++
	done := f.step >= f.stepsPerEpisode
	var reward float64
	if done {
		reward = f.rewardFn(f.episode)
	}
	return make([]float64, 17), reward, done
}

type MockModel struct {
	mock.Mock
}

func (m *MockModel) Act(state []float64) (int, float64) {
	args := m.Called(state)
	return args.Int(0), args.Get(1).(float64)
}

func (m *MockModel) Update(batch []policy.Experience) (float64, float64) {
	args := m.Called(batch)
	return args.Get(0).(float64), args.Get(1).(float64)
}

func (m *MockModel) Save(dir string) error {
	args := m.Called(dir)
	return args.Error(0)
}

func (m *MockModel) Version() string {
	args := m.Called()
	return args.String(0)
}

func newMockModel() *MockModel {
	m := new(MockModel)
	m.On("Act", mock.Anything).Return(0, 0.25)
	m.On("Update", mock.Anything).Return(0.0, 0.0)
	// Save must leave a real directory behind so the results file can
	// be written next to the final weights.
	m.On("Save", mock.AnythingOfType("string")).Run(func(args mock.Arguments) {
		_ = os.MkdirAll(args.String(0), 0o755)
	}).Return(nil)
	return m
}

func trainerConfig(t *testing.T, episodes int) config.Config {
	cfg := config.DefaultConfig()
	cfg.Episodes = episodes
	cfg.EarlyStoppingPatience = 1000
	cfg.CheckpointInterval = 100000
	cfg.ModelDir = t.TempDir()
	return *cfg
}

func TestRun_EarlyStopsAfterPatienceExhausted(t *testing.T) {
	cfg := trainerConfig(t, 200)
	cfg.EarlyStoppingPatience = 2
	cfg.MinImprovement = 0.01

	environment := &fakeEnv{stepsPerEpisode: 1, rewardFn: func(episode int) float64 {
		if episode > 10 && episode <= 20 {
			return 1
		}
		return 0
	}}
	model := newMockModel()

	results, err := New(cfg, environment, model).Run(context.Background())
	require.NoError(t, err)

	assert.True(t, results.EarlyStopped)
	assert.Len(t, results.EpisodeRewards, 40,
		"improvements at checks 10 and 20, then patience burns over checks 30 and 40")
	assert.Equal(t, 1.0, results.BestAvgReward)
	assert.Contains(t, results.BestModelPath, "best_model_ep20")
}

func TestRun_CompletesAllEpisodesWithoutPlateau(t *testing.T) {
	cfg := trainerConfig(t, 30)
	cfg.EarlyStoppingPatience = 2

	// Strictly improving rewards never trip the patience counter.
	environment := &fakeEnv{stepsPerEpisode: 1, rewardFn: func(episode int) float64 {
		return float64(episode)
	}}
	model := newMockModel()

	results, err := New(cfg, environment, model).Run(context.Background())
	require.NoError(t, err)

	assert.False(t, results.EarlyStopped)
	assert.Len(t, results.EpisodeRewards, 30)
	assert.Equal(t, 30.0, results.FinalReward)
}

func TestRun_UpdatesOncePerEpisodeWithFreshBuffer(t *testing.T) {
	cfg := trainerConfig(t, 10)

	environment := &fakeEnv{stepsPerEpisode: 3, rewardFn: func(int) float64 { return 0 }}
	model := newMockModel()
	model.ExpectedCalls = nil
	model.On("Act", mock.Anything).Return(0, 0.25)
	model.On("Update", mock.Anything).Run(func(args mock.Arguments) {
		batch := args.Get(0).([]policy.Experience)
		assert.Len(t, batch, 3, "buffer holds exactly one episode")
	}).Return(0.0, 0.0)
	model.On("Save", mock.AnythingOfType("string")).Run(func(args mock.Arguments) {
		_ = os.MkdirAll(args.String(0), 0o755)
	}).Return(nil)

	_, err := New(cfg, environment, model).Run(context.Background())
	require.NoError(t, err)

	model.AssertNumberOfCalls(t, "Update", 10)
}

func TestRun_PeriodicCheckpoints(t *testing.T) {
	cfg := trainerConfig(t, 10)
	cfg.CheckpointInterval = 5

	environment := &fakeEnv{stepsPerEpisode: 1, rewardFn: func(int) float64 { return 0 }}
	model := newMockModel()

	results, err := New(cfg, environment, model).Run(context.Background())
	require.NoError(t, err)

	// checkpoints at episodes 5 and 10, best at the episode-10 check,
	// final save at the end
	model.AssertNumberOfCalls(t, "Save", 4)

	var checkpoints []string
	for _, call := range model.Calls {
		if call.Method == "Save" {
			if path := call.Arguments.String(0); strings.Contains(path, "checkpoint_ep") {
				checkpoints = append(checkpoints, path)
			}
		}
	}
	require.Len(t, checkpoints, 2)
	assert.Contains(t, checkpoints[0], "checkpoint_ep5")
	assert.Contains(t, checkpoints[1], "checkpoint_ep10")
	assert.NotEmpty(t, results.ModelPath)
}

func TestRun_WritesResultsFile(t *testing.T) {
	cfg := trainerConfig(t, 5)

	environment := &fakeEnv{stepsPerEpisode: 2, rewardFn: func(int) float64 { return 1.5 }}
	model := newMockModel()

	results, err := New(cfg, environment, model).Run(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, results.RunID)

	read, err := ReadResults(results.ModelPath + "/training_results.json")
	require.NoError(t, err)
	assert.Equal(t, results.RunID, read.RunID)
	assert.Equal(t, results.EpisodeRewards, read.EpisodeRewards)
	assert.Equal(t, 1.5, read.FinalReward)
	assert.Zero(t, read.BestAvgReward, "no improvement check ran in five episodes")
}

func TestRun_CancelledContext(t *testing.T) {
	cfg := trainerConfig(t, 5)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	environment := &fakeEnv{stepsPerEpisode: 1, rewardFn: func(int) float64 { return 0 }}
	model := newMockModel()

	_, err := New(cfg, environment, model).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
