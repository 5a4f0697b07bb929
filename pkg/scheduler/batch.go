package scheduler

import (
	"context"
	"sync"
)

// BatchResult 批量运行中单个输入的结果
type BatchResult struct {
	Index  int
	Result *Result
	Err    error
}

// RunBatch 并行执行多个互不相关的排班（例如多个部门或多个月份）
// 每次运行独占自己的状态，结果按输入顺序返回。
func (e *Engine) RunBatch(ctx context.Context, inputs []Input, workers int) []BatchResult {
	if len(inputs) == 0 {
		return nil
	}
	if workers <= 0 {
		workers = 4
	}
	if workers > len(inputs) {
		workers = len(inputs)
	}

	type job struct {
		index int
		input Input
	}
	jobs := make(chan job, len(inputs))
	results := make(chan BatchResult, len(inputs))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				if err := ctx.Err(); err != nil {
					results <- BatchResult{Index: j.index, Err: wrapStageError("batch", err)}
					continue
				}
				res, err := e.Run(ctx, j.input)
				results <- BatchResult{Index: j.index, Result: res, Err: err}
			}
		}()
	}

	for i, in := range inputs {
		jobs <- job{index: i, input: in}
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	out := make([]BatchResult, len(inputs))
	for r := range results {
		out[r.Index] = r
	}
	return out
}

// BestOf 返回批量结果中最差周极差最小的有效结果，没有有效结果时返回 nil
func BestOf(results []BatchResult) *Result {
	var best *Result
	for _, r := range results {
		if r.Err != nil || r.Result == nil {
			continue
		}
		if best == nil || better(r.Result, best) {
			best = r.Result
		}
	}
	return best
}

func better(a, b *Result) bool {
	if a.Valid != b.Valid {
		return a.Valid
	}
	if len(a.Violations) != len(b.Violations) {
		return len(a.Violations) < len(b.Violations)
	}
	return a.Balancer.FinalWorst < b.Balancer.FinalWorst
}
