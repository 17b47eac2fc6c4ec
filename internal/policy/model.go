// Package policy implements the actor-critic model pair: a policy
// network producing an action distribution and a value network
// estimating episode return, updated with a clipped-surrogate
// objective and TD-target regression.
package policy

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/google/uuid"
)

const (
	hiddenSize1 = 128
	hiddenSize2 = 64

	probFloor = 1e-10
	advEps    = 1e-8
)

// Experience is one transition collected during a rollout. Prob is the
// policy's probability of the chosen action at sampling time, which
// serves as the "old" policy term of the surrogate ratio.
type Experience struct {
	State     []float64
	Action    int
	Prob      float64
	Reward    float64
	NextState []float64
	Done      bool
}

// Model is the actor-critic pair. The two networks share no
// parameters; both take the encoded state as input.
type Model struct {
	actor  *Network
	critic *Network

	stateDim  int
	actionDim int
	lr        float64
	gamma     float64
	epsilon   float64

	rng     *rand.Rand
	version string
}

// New creates a Model with freshly initialized networks.
func New(stateDim, actionDim int, lr, gamma, epsilon float64, rng *rand.Rand) *Model {
	return &Model{
		actor:     NewNetwork(rng, stateDim, hiddenSize1, hiddenSize2, actionDim),
		critic:    NewNetwork(rng, stateDim, hiddenSize1, hiddenSize2, 1),
		stateDim:  stateDim,
		actionDim: actionDim,
		lr:        lr,
		gamma:     gamma,
		epsilon:   epsilon,
		rng:       rng,
		version:   fmt.Sprintf("model-%s", uuid.New().String()),
	}
}

// Version returns the model's version identifier.
func (m *Model) Version() string {
	return m.version
}

// Probs returns the action probability distribution for the state.
func (m *Model) Probs(state []float64) []float64 {
	return softmax(m.actor.Forward(state))
}

// Act samples an action from the policy distribution and returns it
// together with its probability.
func (m *Model) Act(state []float64) (action int, prob float64) {
	probs := m.Probs(state)
	r := m.rng.Float64()
	cumulative := 0.0
	for i, p := range probs {
		cumulative += p
		if r < cumulative {
			return i, p
		}
	}
	// Floating point slack: fall through to the last action.
	lastAction := len(probs) - 1
	return lastAction, probs[lastAction]
}

// ActDeterministic returns the arg-max action of the policy
// distribution. For a fixed state and fixed parameters the result
// never varies.
func (m *Model) ActDeterministic(state []float64) int {
	probs := m.Probs(state)
	best := 0
	for i, p := range probs {
		if p > probs[best] {
			best = i
		}
	}
	return best
}

// Value returns the critic's estimate for the state.
func (m *Model) Value(state []float64) float64 {
	return m.critic.Forward(state)[0]
}

// Update performs one clipped-surrogate policy update and one value
// regression update over the batch, then returns both losses. The
// advantage estimate is a one-step TD residual, normalized to zero
// mean and unit variance across the batch. The surrogate ratio is
// taken against the probabilities recorded at sampling time, so on a
// freshly collected batch it starts at 1.
func (m *Model) Update(batch []Experience) (actorLoss, criticLoss float64) {
	n := len(batch)
	if n == 0 {
		return 0, 0
	}

	values := make([]float64, n)
	nextValues := make([]float64, n)
	for i, exp := range batch {
		values[i] = m.critic.Forward(exp.State)[0]
		nextValues[i] = m.critic.Forward(exp.NextState)[0]
	}

	advantages := make([]float64, n)
	targets := make([]float64, n)
	for i, exp := range batch {
		notDone := 1.0
		if exp.Done {
			notDone = 0.0
		}
		targets[i] = exp.Reward + m.gamma*nextValues[i]*notDone
		advantages[i] = targets[i] - values[i]
	}
	normalizeAdvantages(advantages)

	// Actor update
	for i, exp := range batch {
		probs := softmax(m.actor.Forward(exp.State))
		p := probs[exp.Action]
		oldProb := exp.Prob + probFloor

		ratio := p / oldProb
		clipped := clamp(ratio, 1-m.epsilon, 1+m.epsilon)
		unclippedObj := ratio * advantages[i]
		clippedObj := clipped * advantages[i]
		surrogate := math.Min(unclippedObj, clippedObj)
		actorLoss -= surrogate

		// Gradient flows only when the active branch is unclipped.
		dRatio := 0.0
		if unclippedObj <= clippedObj || (ratio >= 1-m.epsilon && ratio <= 1+m.epsilon) {
			dRatio = -advantages[i]
		}
		dLdP := dRatio / oldProb

		// Softmax jacobian applied to the single selected action.
		delta := make([]float64, m.actionDim)
		for k := range delta {
			indicator := 0.0
			if k == exp.Action {
				indicator = 1.0
			}
			delta[k] = dLdP * p * (indicator - probs[k])
		}
		m.actor.Backward(delta)
	}
	actorLoss /= float64(n)
	m.actor.Step(m.lr, n)

	// Critic update
	for i, exp := range batch {
		v := m.critic.Forward(exp.State)[0]
		diff := v - targets[i]
		criticLoss += diff * diff
		m.critic.Backward([]float64{2 * diff})
	}
	criticLoss /= float64(n)
	m.critic.Step(m.lr, n)

	m.version = fmt.Sprintf("model-%s", uuid.New().String())
	return actorLoss, criticLoss
}

// normalizeAdvantages rescales to zero mean and unit variance in
// place, epsilon-stabilized against a constant batch.
func normalizeAdvantages(advantages []float64) {
	n := float64(len(advantages))
	mean := 0.0
	for _, a := range advantages {
		mean += a
	}
	mean /= n

	variance := 0.0
	for _, a := range advantages {
		variance += (a - mean) * (a - mean)
	}
	stdDev := math.Sqrt(variance / n)

	for i := range advantages {
		advantages[i] = (advantages[i] - mean) / (stdDev + advEps)
	}
}

func softmax(logits []float64) []float64 {
	maxLogit := logits[0]
	for _, l := range logits[1:] {
		if l > maxLogit {
			maxLogit = l
		}
	}
	sum := 0.0
	out := make([]float64, len(logits))
	for i, l := range logits {
		out[i] = math.Exp(l - maxLogit)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
