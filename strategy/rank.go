package strategy

import (
	"context"
	"math"
	"sort"

	"golang.org/x/sync/errgroup"
)

// rankConcurrency bounds the worker pool used per ranking batch. Each
// simulation only reads the shared model and encoder, so workers need no
// locking.
const rankConcurrency = 4

// StrategyResult is one ranked entry of a simulation batch.
type StrategyResult struct {
	Strategy          string    `json:"strategy"`
	Stints            []Stint   `json:"stints"`
	TotalTimeSeconds  float64   `json:"total_time_s"`
	TotalTimeMinutes  float64   `json:"total_time_min"`
	AverageLapSeconds float64   `json:"avg_lap_s"`
	LapTimes          []float64 `json:"lap_times,omitempty"`
	PitStops          int       `json:"pit_stops"`
}

// RankStrategies simulates every strategy independently against one race
// context and returns the results ordered ascending by total race time. Ties
// keep submission order (stable sort), so the first element is the best
// strategy.
//
// All strategies are validated before any simulation starts; a single invalid
// strategy or failed inference aborts the whole batch with no partial
// results. Strategies are evaluated concurrently, but results are assembled
// in submission order before sorting, keeping the ranking deterministic.
//
// AverageLapSeconds covers only the real lap entries; pit-loss entries are
// excluded from the average.
func RankStrategies(
	ctx context.Context,
	model Predictor,
	enc *Encoder,
	race RaceContext,
	strategies []Strategy,
	pitLossSeconds float64,
) ([]StrategyResult, error) {
	if model == nil || enc == nil {
		return nil, ErrModelUnavailable
	}
	for _, s := range strategies {
		if err := ValidateStrategy(s); err != nil {
			return nil, err
		}
	}

	results := make([]StrategyResult, len(strategies))
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(rankConcurrency)
	for i, strat := range strategies {
		i, strat := i, strat
		g.Go(func() error {
			sim, err := Simulate(model, enc, race, strat.Stints, pitLossSeconds)
			if err != nil {
				return err
			}
			results[i] = StrategyResult{
				Strategy:          strat.Name,
				Stints:            strat.Stints,
				TotalTimeSeconds:  sim.TotalTime,
				TotalTimeMinutes:  math.Round(sim.TotalTime/60.0*100) / 100,
				AverageLapSeconds: averageRealLap(sim, pitLossSeconds),
				LapTimes:          sim.LapTimes,
				PitStops:          sim.PitStops,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].TotalTimeSeconds < results[j].TotalTimeSeconds
	})
	return results, nil
}

func averageRealLap(sim SimulationResult, pitLossSeconds float64) float64 {
	real := sim.RealLaps()
	if real == 0 {
		return 0
	}
	return (sim.TotalTime - float64(sim.PitStops)*pitLossSeconds) / float64(real)
}
