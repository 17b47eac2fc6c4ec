// Package trainer orchestrates on-policy training: full-episode
// rollouts against the trading environment, one model update per
// episode, moving-average early stopping and checkpointing.
package trainer

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/your-org/ppo-trade-agent/internal/config"
	"github.com/your-org/ppo-trade-agent/internal/env"
	"github.com/your-org/ppo-trade-agent/internal/policy"
	"github.com/your-org/ppo-trade-agent/pkg/logger"
)

// movingAvgWindow is the number of trailing episodes the early-stopping
// average is computed over, and the cadence of the improvement check.
const movingAvgWindow = 10

// Environment is the rollout target. *env.Environment satisfies it.
type Environment interface {
	Reset() []float64
	Step(action env.Action) (nextState []float64, reward float64, done bool)
}

// Model is the trainable actor-critic pair. *policy.Model satisfies it.
type Model interface {
	Act(state []float64) (action int, prob float64)
	Update(batch []policy.Experience) (actorLoss, criticLoss float64)
	Save(dir string) error
	Version() string
}

// Results is the terminal record of a training run. It is persisted as
// training_results.json alongside the final model weights.
type Results struct {
	RunID                   string        `json:"run_id"`
	Config                  config.Config `json:"config"`
	EpisodeRewards          []float64     `json:"episode_rewards"`
	AvgReward               float64       `json:"avg_reward"`
	FinalReward             float64       `json:"final_reward"`
	BestAvgReward           float64       `json:"best_avg_reward"`
	BestModelPath           string        `json:"best_model_path"`
	TrainingDurationSeconds float64       `json:"training_duration_seconds"`
	ModelPath               string        `json:"model_path"`
	EarlyStopped            bool          `json:"early_stopped"`
}

// Trainer runs the PPO-style training loop. It owns the experience
// buffer exclusively; the buffer is cleared after every update and is
// never shared across episodes.
type Trainer struct {
	cfg    config.Config
	env    Environment
	model  Model
	buffer []policy.Experience
}

// New creates a Trainer.
func New(cfg config.Config, environment Environment, model Model) *Trainer {
	return &Trainer{
		cfg:    cfg,
		env:    environment,
		model:  model,
		buffer: make([]policy.Experience, 0, cfg.MaxSteps),
	}
}

// Run executes the training loop and returns the results record. The
// context is only consulted between episodes; an in-flight episode
// always completes.
func (t *Trainer) Run(ctx context.Context) (*Results, error) {
	start := time.Now()
	runID := uuid.New().String()
	checkpointDir := filepath.Join(t.cfg.ModelDir, "checkpoints_"+start.Format("20060102_150405"))

	logger.Info("===== PPO Training =====")
	logger.Infof("Run ID: %s", runID)
	logger.Infof("Starting training for %d episodes...", t.cfg.Episodes)
	logger.Infof("Early stopping patience: %d checks", t.cfg.EarlyStoppingPatience)
	logger.Infof("Checkpoint directory: %s", checkpointDir)

	var episodeRewards []float64
	bestAvgReward := math.Inf(-1)
	bestModelPath := ""
	patienceCounter := 0
	earlyStopped := false

	for episode := 0; episode < t.cfg.Episodes; episode++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("training interrupted: %w", err)
		}

		episodeReward, steps := t.rollout()
		actorLoss, criticLoss := t.model.Update(t.buffer)
		t.buffer = t.buffer[:0]
		episodeRewards = append(episodeRewards, episodeReward)

		if episode < 5 || (episode+1)%5 == 0 {
			logger.Infof("Episode %d completed | Steps: %d | Reward: %.2f",
				episode+1, steps, episodeReward)
		}

		if (episode+1)%movingAvgWindow == 0 {
			avgReward := mean(episodeRewards[len(episodeRewards)-movingAvgWindow:])
			elapsed := time.Since(start).Seconds()
			eta := elapsed / float64(episode+1) * float64(t.cfg.Episodes-episode-1)
			logger.Infof("===== Episode %d/%d ===== | Avg Reward (last %d): %.2f | Actor Loss: %.4f | Critic Loss: %.4f | ETA: %dm %ds",
				episode+1, t.cfg.Episodes, movingAvgWindow, avgReward,
				actorLoss, criticLoss, int(eta)/60, int(eta)%60)

			if avgReward > bestAvgReward+t.cfg.MinImprovement {
				improvement := avgReward - bestAvgReward
				bestAvgReward = avgReward
				patienceCounter = 0

				bestModelPath = filepath.Join(checkpointDir,
					fmt.Sprintf("best_model_ep%d_r%.2f", episode+1, avgReward))
				if err := t.model.Save(bestModelPath); err != nil {
					return nil, fmt.Errorf("failed to save best model: %w", err)
				}
				logger.Infof("New best model! Improvement: +%.2f | Saved to: %s",
					improvement, bestModelPath)
			} else {
				patienceCounter++
				logger.Infof("No improvement (%d/%d)", patienceCounter, t.cfg.EarlyStoppingPatience)
				if patienceCounter >= t.cfg.EarlyStoppingPatience {
					earlyStopped = true
					logger.Infof("Early stopping triggered after %d episodes", episode+1)
					logger.Infof("Best average reward: %.2f", bestAvgReward)
					break
				}
			}
		}

		if (episode+1)%t.cfg.CheckpointInterval == 0 {
			checkpointPath := filepath.Join(checkpointDir, fmt.Sprintf("checkpoint_ep%d", episode+1))
			if err := t.model.Save(checkpointPath); err != nil {
				return nil, fmt.Errorf("failed to save checkpoint: %w", err)
			}
			logger.Infof("Checkpoint saved: %s", checkpointPath)
		}
	}

	// JSON cannot represent -Inf; a run too short for any improvement
	// check reports zero.
	if math.IsInf(bestAvgReward, -1) {
		bestAvgReward = 0
	}

	modelDir := filepath.Join(t.cfg.ModelDir, "ppo_"+time.Now().Format("20060102_150405"))
	if err := t.model.Save(modelDir); err != nil {
		return nil, fmt.Errorf("failed to save final model: %w", err)
	}

	results := &Results{
		RunID:                   runID,
		Config:                  t.cfg,
		EpisodeRewards:          episodeRewards,
		AvgReward:               mean(episodeRewards),
		BestAvgReward:           bestAvgReward,
		BestModelPath:           bestModelPath,
		TrainingDurationSeconds: time.Since(start).Seconds(),
		ModelPath:               modelDir,
		EarlyStopped:            earlyStopped,
	}
	if len(episodeRewards) > 0 {
		results.FinalReward = episodeRewards[len(episodeRewards)-1]
	}
	if err := results.Write(filepath.Join(modelDir, "training_results.json")); err != nil {
		return nil, err
	}

	logger.Info("===== Training Complete =====")
	logger.Infof("Average Reward: %.2f", results.AvgReward)
	logger.Infof("Final Reward: %.2f", results.FinalReward)
	logger.Infof("Training Duration: %.1fs", results.TrainingDurationSeconds)
	logger.Infof("Model saved to: %s", modelDir)

	return results, nil
}

// rollout plays one full episode, buffering every transition.
func (t *Trainer) rollout() (episodeReward float64, steps int) {
	state := t.env.Reset()
	for {
		action, prob := t.model.Act(state)
		nextState, reward, done := t.env.Step(env.Action(action))
		t.buffer = append(t.buffer, policy.Experience{
			State:     state,
			Action:    action,
			Prob:      prob,
			Reward:    reward,
			NextState: nextState,
			Done:      done,
		})
		state = nextState
		episodeReward += reward
		steps++
		if done {
			return episodeReward, steps
		}
	}
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
