// Package optimizer 提供排班平衡优化：在硬约束内缩小每周工时偏差
package optimizer

import (
	"context"
	"time"

	"github.com/paiban/monthroster/pkg/logger"
	"github.com/paiban/monthroster/pkg/scheduler/constraint"
	"github.com/paiban/monthroster/pkg/scheduler/solver"
	"github.com/paiban/monthroster/pkg/scheduler/state"
)

const epsilon = 1e-9

// 停止原因
const (
	StopConverged     = "converged"
	StopNoMove        = "no_move"
	StopMaxIterations = "max_iterations"
	StopCancelled     = "cancelled"
)

// WeekSpread 一周内员工工时偏差（实际 - 目标）的极差
type WeekSpread struct {
	Week   int     `json:"week"`
	Spread float64 `json:"spread"`
	Over   int     `json:"-"` // 偏差最大的员工行号，无参与者时为 -1
	Under  int     `json:"-"` // 偏差最小的员工行号
}

// Snapshot 一次度量结果
type Snapshot struct {
	Weeks []WeekSpread
	Worst int // 极差最大的周在 Weeks 中的下标，-1 表示无可平衡的周
	Total float64
}

// WorstSpread 最差周极差
func (sn Snapshot) WorstSpread() float64 {
	if sn.Worst < 0 {
		return 0
	}
	return sn.Weeks[sn.Worst].Spread
}

// Better 按 (最差极差, 极差总和) 字典序严格更优
func (sn Snapshot) Better(prev Snapshot) bool {
	w, pw := sn.WorstSpread(), prev.WorstSpread()
	if w < pw-epsilon {
		return true
	}
	if w > pw+epsilon {
		return false
	}
	return sn.Total < prev.Total-epsilon
}

// Measure 从网格直接计算每周偏差极差
// 整周单元格都被锁定的员工（例如全周请假）不参与该周比较。
func Measure(s *state.Schedule) Snapshot {
	snap := Snapshot{Weeks: make([]WeekSpread, len(s.Weeks)), Worst: -1}
	for w, week := range s.Weeks {
		ws := WeekSpread{Week: w, Over: -1, Under: -1}
		var hi, lo float64
		for i := range s.Staff {
			if !hasOpenCell(s, i, week.Start, week.End) {
				continue
			}
			dev := s.WeekHours(i, w) - s.Profiles[i].Weekly[w].TargetHours
			if ws.Over < 0 || dev > hi {
				hi, ws.Over = dev, i
			}
			if ws.Under < 0 || dev < lo {
				lo, ws.Under = dev, i
			}
		}
		if ws.Over >= 0 && ws.Over != ws.Under {
			ws.Spread = hi - lo
		}
		snap.Weeks[w] = ws
		snap.Total += ws.Spread
		if ws.Spread > epsilon && (snap.Worst < 0 || ws.Spread > snap.Weeks[snap.Worst].Spread) {
			snap.Worst = w
		}
	}
	return snap
}

func hasOpenCell(s *state.Schedule, staff, from, to int) bool {
	for d := from; d <= to; d++ {
		if !s.IsLocked(staff, d) {
			return true
		}
	}
	return false
}

// Report 平衡器执行报告
type Report struct {
	Iterations   int           `json:"iterations"`
	Accepted     int           `json:"accepted"`
	Rejected     int           `json:"rejected"`
	Converged    bool          `json:"converged"`
	StopReason   string        `json:"stop_reason"`
	InitialWorst float64       `json:"initial_worst"`
	FinalWorst   float64       `json:"final_worst"`
	Trace        []float64     `json:"trace"` // 每次迭代开始时的最差周极差
	Moves        []Move        `json:"moves,omitempty"`
	Saturated    int           `json:"saturated"`
	Duration     time.Duration `json:"duration"`
}

// Balancer 局部搜索平衡器
type Balancer struct {
	safety *constraint.Manager
	logger *logger.SchedulerLogger
}

// New 创建平衡器，safety 为移动前后比较的硬约束集合
func New(safety *constraint.Manager, log *logger.SchedulerLogger) *Balancer {
	return &Balancer{safety: safety, logger: log.Stage("balancer")}
}

// Name 实现 solver.Stage
func (b *Balancer) Name() string { return "balancer" }

// Apply 实现 solver.Stage
func (b *Balancer) Apply(ctx context.Context, s *state.Schedule) (*solver.Report, error) {
	rep, err := b.Balance(ctx, s)
	if rep == nil {
		return nil, err
	}
	return &solver.Report{
		Stage:      b.Name(),
		Assigned:   rep.Accepted,
		Iterations: rep.Iterations,
		Duration:   rep.Duration,
	}, err
}

// Balance 迭代缩小最差周的工时极差，结束后把剩余空格补为休息
func (b *Balancer) Balance(ctx context.Context, s *state.Schedule) (*Report, error) {
	start := time.Now()
	maxIter := s.Rules.BalancerMaxIterations
	tolerance := s.Rules.BalancerTolerance

	rep := &Report{StopReason: StopMaxIterations}
	baseline := b.safety.HardPenalties(s)

	s.RefreshAll()
	snap := Measure(s)
	rep.InitialWorst = snap.WorstSpread()
	b.logger.Infof("开始平衡: 最差周极差 %.1f 小时, 容差 %.1f, 最多 %d 次迭代",
		rep.InitialWorst, tolerance, maxIter)

	for rep.Iterations < maxIter {
		if err := ctx.Err(); err != nil {
			rep.StopReason = StopCancelled
			rep.FinalWorst = snap.WorstSpread()
			rep.Duration = time.Since(start)
			return rep, err
		}

		rep.Iterations++
		rep.Trace = append(rep.Trace, snap.WorstSpread())

		if snap.Worst < 0 || snap.WorstSpread() < tolerance {
			rep.Converged = true
			rep.StopReason = StopConverged
			break
		}

		move, after, rejected := b.tryMoves(s, snap, baseline)
		rep.Rejected += rejected
		if move == nil {
			ws := snap.Weeks[snap.Worst]
			b.logger.Infof("第 %d 周 %s 与 %s 之间没有可行移动，停止平衡",
				ws.Week+1, s.Staff[ws.Over].ID, s.Staff[ws.Under].ID)
			rep.StopReason = StopNoMove
			break
		}

		rep.Accepted++
		rep.Moves = append(rep.Moves, *move)
		b.logger.Debugf("迭代 %d: %s %s, 最差极差 %.1f -> %.1f",
			rep.Iterations, move.Kind, move.Summary, snap.WorstSpread(), after.WorstSpread())

		snap = after
		baseline = b.safety.HardPenalties(s)
	}

	if rep.StopReason == StopMaxIterations {
		b.logger.Warnf("达到最大迭代次数 %d, 最差周极差 %.1f 小时", maxIter, snap.WorstSpread())
	}

	if n := s.Saturate(); n > 0 {
		b.logger.Warnf("平衡结束后仍有 %d 个空单元格，已补为休息", n)
		rep.Saturated = n
	}

	rep.FinalWorst = snap.WorstSpread()
	rep.Duration = time.Since(start)
	b.logger.Infof("平衡完成: %d 次迭代, 接受 %d 次移动, 最差周极差 %.1f -> %.1f (%s)",
		rep.Iterations, rep.Accepted, rep.InitialWorst, rep.FinalWorst, rep.StopReason)
	return rep, nil
}

// tryMoves 依次尝试 Give、Swap、Downgrade，返回第一个被接受的移动
func (b *Balancer) tryMoves(s *state.Schedule, snap Snapshot, baseline map[string]int) (*Move, Snapshot, int) {
	ws := snap.Weeks[snap.Worst]
	week := s.Weeks[ws.Week]
	rejected := 0

	for _, kind := range MoveOrder {
		for _, m := range generateMoves(s, kind, week, ws.Over, ws.Under) {
			if err := m.apply(s); err != nil {
				rejected++
				continue
			}
			if b.safety.IntroducesViolation(s, baseline) {
				m.undo(s)
				rejected++
				continue
			}
			after := Measure(s)
			if !after.Better(snap) || after.WorstSpread() > snap.WorstSpread()+epsilon {
				m.undo(s)
				rejected++
				continue
			}
			return m, after, rejected
		}
	}
	return nil, snap, rejected
}
