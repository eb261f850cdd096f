package platform

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"flexevo/internal/evo"
	"flexevo/internal/genotype"
	"flexevo/internal/model"
	"flexevo/internal/nn"
	"flexevo/internal/scape"
)

// Agent is one population member: a genome, its compiled network and the
// flex replacement state carried between generations.
type Agent struct {
	id         string
	genome     genotype.Genome
	activation string
	net        *nn.Network

	fitness  float64
	lifeTime int
	changed  bool
	mutForce evo.MutForce
}

var (
	_ evo.FlexIndividual = (*Agent)(nil)
	_ scape.StepAgent    = (*Agent)(nil)
)

func newAgent(genome genotype.Genome, activation string, lifeTime int) *Agent {
	return &Agent{
		id:         uuid.NewString(),
		genome:     genome,
		activation: activation,
		lifeTime:   lifeTime,
	}
}

func agentFromOffspring(o evo.Offspring, activation string) *Agent {
	a := newAgent(o.Genome, activation, o.LifeTime)
	a.changed = o.Changed
	a.mutForce = o.MutForce
	return a
}

func agentFromMember(m model.MemberRecord, activation string) *Agent {
	a := newAgent(m.Genome.Clone(), activation, m.LifeTime)
	a.fitness = m.Fitness
	a.changed = m.Changed
	a.mutForce = evo.MutForce(m.MutForce)
	return a
}

func (a *Agent) ID() string { return a.id }
func (a *Agent) Fitness() float64 { return a.fitness }
func (a *Agent) Genome() genotype.Genome { return a.genome }
func (a *Agent) LifeTime() int { return a.lifeTime }
func (a *Agent) Changed() bool { return a.changed }
func (a *Agent) MutForce() evo.MutForce { return a.mutForce }

func (a *Agent) RunStep(_ context.Context, input []float64) ([]float64, error) {
	if a.net == nil {
		return nil, errors.Errorf("agent %s is not compiled", a.id)
	}
	return a.net.Forward(input)
}

// evaluate compiles the genome on first use and scores it on s.
func (a *Agent) evaluate(ctx context.Context, s scape.Scape) error {
	if a.net == nil {
		net, err := nn.CompileWithActivation(a.genome, a.activation)
		if err != nil {
			return errors.Wrapf(err, "compile agent %s", a.id)
		}
		a.net = net
	}
	fitness, _, err := s.Evaluate(ctx, a)
	if err != nil {
		return errors.Wrapf(err, "evaluate agent %s on %s", a.id, s.Name())
	}
	a.fitness = float64(fitness)
	return nil
}

func (a *Agent) record() model.MemberRecord {
	return model.MemberRecord{
		Genome:   a.genome.Clone(),
		Fitness:  a.fitness,
		LifeTime: a.lifeTime,
		Changed:  a.changed,
		MutForce: int(a.mutForce),
	}
}
