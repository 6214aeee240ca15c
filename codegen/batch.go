package codegen

import (
	"context"
	"runtime"
	"sync"

	"github.com/xuri/formula/numeric"
)

// EvaluateBatch evaluates the named outputs over every input set and
// returns one row of values per input set, in input order. The input sets
// are split into contiguous chunks processed concurrently, each input set
// by its own instance. A workers value of zero or less uses one worker per
// CPU. Cancelling ctx stops the workers between input sets.
//
// For example:
//
//	rows, err := codegen.EvaluateBatch(ctx, engine, inputs, []string{"total"}, 0)
//	if err != nil {
//	    fmt.Println(err)
//	    return
//	}
//	for i, row := range rows {
//	    fmt.Printf("input %d: %v\n", i, row[0])
//	}
func EvaluateBatch(ctx context.Context, e *Engine, inputs []Inputs, outputs []string, workers int) ([][]numeric.Value, error) {
	for _, name := range outputs {
		if _, err := e.NewInstance(nil).output(name); err != nil {
			return nil, err
		}
	}
	results := make([][]numeric.Value, len(inputs))
	if len(inputs) == 0 {
		return results, nil
	}

	// Split into chunks of input sets
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if len(inputs) < workers {
		workers = len(inputs)
	}
	perWorker := (len(inputs) + workers - 1) / workers

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		start := i * perWorker
		end := min(start+perWorker, len(inputs))
		if start >= end {
			break
		}

		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()

			for row := start; row < end; row++ {
				if ctx.Err() != nil {
					return
				}
				in := e.NewInstance(inputs[row])
				values := make([]numeric.Value, len(outputs))
				for j, name := range outputs {
					// Output names were checked above
					values[j], _ = in.Get(name)
				}
				results[row] = values
			}
		}(start, end)
	}

	wg.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}
