package cmd

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/Devarsh-44/raceintel360/strategy"
)

// Plan is the YAML input of the simulate command: one race context plus the
// candidate strategies to rank against it.
type Plan struct {
	Race           strategy.RaceContext `yaml:"race"`
	PitLossSeconds float64              `yaml:"pit_loss_seconds"`
	Strategies     []strategy.Strategy  `yaml:"strategies"`
}

// LoadPlan reads and validates a strategy plan file.
func LoadPlan(path string) (Plan, error) {
	var plan Plan
	data, err := os.ReadFile(path)
	if err != nil {
		return plan, errors.Wrapf(err, "read plan %s", path)
	}
	if err := yaml.Unmarshal(data, &plan); err != nil {
		return plan, errors.Wrapf(err, "parse plan %s", path)
	}
	if plan.Race.TotalLaps <= 0 {
		return plan, errors.Errorf("plan %s: race.total_laps must be positive", path)
	}
	if len(plan.Strategies) == 0 {
		return plan, errors.Errorf("plan %s: no strategies defined", path)
	}
	for _, s := range plan.Strategies {
		if err := strategy.ValidateStrategy(s); err != nil {
			return plan, errors.Wrapf(err, "plan %s", path)
		}
	}
	return plan, nil
}
