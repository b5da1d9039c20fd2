package overlap

import (
	"context"
	"fmt"

	cmap "github.com/orcaman/concurrent-map/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/scusemua/trace-analyzer/m/v2/internal/trace"
)

// Analyzer computes a MachineSummary for every machine that appears in a job list.
type Analyzer struct {
	capacity   CapacityDirectory
	convention BoundaryConvention
	workers    int

	logger   *zap.Logger
	sugarLog *zap.SugaredLogger
}

func NewAnalyzer(capacity CapacityDirectory, convention BoundaryConvention, workers int, logger *zap.Logger) *Analyzer {
	if capacity == nil {
		capacity = CapacityDirectory{}
	}
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger, _ = zap.NewDevelopment()
	}

	return &Analyzer{
		capacity:   capacity,
		convention: convention,
		workers:    workers,
		logger:     logger,
		sugarLog:   logger.Sugar(),
	}
}

// Analyze returns one summary per machine, in the order machines were first seen.
func (a *Analyzer) Analyze(ctx context.Context, jobs []*trace.Job) ([]*MachineSummary, error) {
	machines := GroupByMachine(jobs)
	keys := machines.Keys()

	results := cmap.New[*MachineSummary]()
	queue := make(chan string)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(queue)
		for _, machine := range keys {
			select {
			case queue <- machine:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	for w := 0; w < a.workers; w++ {
		g.Go(func() error {
			for machine := range queue {
				windows, _ := machines.Get(machine)
				results.Set(machine, SummarizeMachine(machine, windows, a.capacity, a.convention))
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	summaries := make([]*MachineSummary, 0, len(keys))
	for _, machine := range keys {
		summary, ok := results.Get(machine)
		if !ok {
			return nil, fmt.Errorf("no overlap summary was produced for machine %s", machine)
		}
		summaries = append(summaries, summary)
	}

	unknown := 0
	for _, summary := range summaries {
		if summary.Capacity == nil {
			unknown++
		}
	}
	if unknown > 0 {
		a.sugarLog.Warnf("%d of %d machine(s) are missing from the capacity directory; their oversubscription ratio is unknown.", unknown, len(summaries))
	}

	a.logger.Debug("Analyzed machine overlap.", zap.Int("machines", len(summaries)), zap.Int("workers", a.workers),
		zap.Stringer("convention", a.convention))
	return summaries, nil
}
