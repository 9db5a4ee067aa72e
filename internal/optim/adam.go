package optim

import (
	"math"

	"github.com/regrada-ai/finetune/internal/model"
)

// Optimizer updates a fixed set of parameters from their accumulated gradients.
type Optimizer interface {
	Step()
	ZeroGrad()
}

// AdamConfig holds Adam hyperparameters.
type AdamConfig struct {
	LearningRate float64
	Beta1        float64
	Beta2        float64
	Epsilon      float64
	WeightDecay  float64
}

// DefaultAdamConfig returns the usual Adam defaults for the given learning rate.
func DefaultAdamConfig(lr float64) AdamConfig {
	return AdamConfig{
		LearningRate: lr,
		Beta1:        0.9,
		Beta2:        0.999,
		Epsilon:      1e-8,
	}
}

// Adam implements adaptive moment estimation with bias correction.
type Adam struct {
	cfg      AdamConfig
	params   []*model.Parameter
	momentum [][]float64
	variance [][]float64
	steps    uint64
}

// NewAdam binds an optimizer to params. Moment buffers start at zero.
func NewAdam(params []*model.Parameter, cfg AdamConfig) *Adam {
	a := &Adam{
		cfg:      cfg,
		params:   params,
		momentum: make([][]float64, len(params)),
		variance: make([][]float64, len(params)),
	}
	for i, p := range params {
		a.momentum[i] = make([]float64, len(p.Data))
		a.variance[i] = make([]float64, len(p.Data))
	}
	return a
}

// Step applies one update to every bound parameter.
func (a *Adam) Step() {
	a.steps++
	t := float64(a.steps)
	correction1 := 1 - math.Pow(a.cfg.Beta1, t)
	correction2 := 1 - math.Pow(a.cfg.Beta2, t)

	for i, p := range a.params {
		m := a.momentum[i]
		v := a.variance[i]
		for j := range p.Data {
			g := p.Grad[j]
			if a.cfg.WeightDecay != 0 {
				g += a.cfg.WeightDecay * p.Data[j]
			}
			m[j] = a.cfg.Beta1*m[j] + (1-a.cfg.Beta1)*g
			v[j] = a.cfg.Beta2*v[j] + (1-a.cfg.Beta2)*g*g
			mHat := m[j] / correction1
			vHat := v[j] / correction2
			p.Data[j] -= a.cfg.LearningRate * mHat / (math.Sqrt(vHat) + a.cfg.Epsilon)
		}
	}
}

// ZeroGrad clears the gradients of every bound parameter.
func (a *Adam) ZeroGrad() {
	for _, p := range a.params {
		p.ZeroGrad()
	}
}

func (a *Adam) Params() []*model.Parameter {
	return a.params
}

func (a *Adam) LearningRate() float64 {
	return a.cfg.LearningRate
}

func (a *Adam) StepCount() uint64 {
	return a.steps
}
