package scorer

import (
	"math/rand"
	"sync"
	"time"
)

// Noise is the injectable perturbation source. Production uses a Gaussian
// term; tests use ZeroNoise for deterministic scores.
type Noise interface {
	Sample() float64
}

// GaussianNoise draws zero-mean samples with the configured sigma.
type GaussianNoise struct {
	sigma float64
	rng   *rand.Rand
	mu    sync.Mutex
}

func NewGaussianNoise(sigma float64) *GaussianNoise {
	return &GaussianNoise{
		sigma: sigma,
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (g *GaussianNoise) Sample() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rng.NormFloat64() * g.sigma
}

// ZeroNoise disables the perturbation term.
type ZeroNoise struct{}

func (ZeroNoise) Sample() float64 { return 0 }
