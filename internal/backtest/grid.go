package backtest

import (
	"runtime"
	"sort"
	"sync"

	"github.com/Wame555/hesoyam/internal/decision"
	"github.com/Wame555/hesoyam/internal/market"
	"github.com/Wame555/hesoyam/internal/module"
)

// GridEntry is one evaluated weight combination.
type GridEntry struct {
	W1, W2, W3  float64
	FinalEquity float64
	Trades      int
	MaxDrawdown float64
}

// ModuleFactory builds a fresh module set for one independent simulation.
// Sharing module instances across combinations would corrupt rolling state, so
// the grid search insists on a factory rather than prebuilt modules.
type ModuleFactory func() []module.Module

// gridTopN bounds the ranked result list.
const gridTopN = 10

// GridSearch enumerates integer weight triples (i,j,k), i,j,k >= 1 and
// i+j+k = 10, assigning tenths to the first three module ids in order. Each
// combination runs a full independent simulation on a worker pool; results are
// merged by a single sort at the end, ranked by final equity descending and
// truncated to the top 10.
func GridSearch(cfg Config, factory ModuleFactory, ids [3]string, sym market.Symbol, bars []market.Bar) []GridEntry {
	type task struct{ i, j, k int }

	tasks := make([]task, 0, 36)
	for i := 1; i <= 8; i++ {
		for j := 1; j <= 9-i; j++ {
			tasks = append(tasks, task{i, j, 10 - i - j})
		}
	}

	workers := runtime.NumCPU()
	if workers > len(tasks) {
		workers = len(tasks)
	}
	if workers < 1 {
		workers = 1
	}

	in := make(chan task)
	results := make([]GridEntry, 0, len(tasks))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for tk := range in {
				weights := decision.Weights{
					ids[0]: float64(tk.i) / 10.0,
					ids[1]: float64(tk.j) / 10.0,
					ids[2]: float64(tk.k) / 10.0,
				}
				engine := NewEngine(cfg, factory(), weights, sym)
				res := engine.Run(bars)
				entry := GridEntry{
					W1:          float64(tk.i) / 10.0,
					W2:          float64(tk.j) / 10.0,
					W3:          float64(tk.k) / 10.0,
					FinalEquity: res.FinalEquity,
					Trades:      res.Trades,
					MaxDrawdown: res.MaxDrawdown,
				}
				mu.Lock()
				results = append(results, entry)
				mu.Unlock()
			}
		}()
	}

	for _, tk := range tasks {
		in <- tk
	}
	close(in)
	wg.Wait()

	sort.Slice(results, func(a, b int) bool {
		if results[a].FinalEquity != results[b].FinalEquity {
			return results[a].FinalEquity > results[b].FinalEquity
		}
		// deterministic order among equal equities
		if results[a].W1 != results[b].W1 {
			return results[a].W1 > results[b].W1
		}
		return results[a].W2 > results[b].W2
	})
	if len(results) > gridTopN {
		results = results[:gridTopN]
	}
	return results
}
