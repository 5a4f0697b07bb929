package swap

import (
	"fmt"
	"sort"
	"strings"

	"github.com/paiban/monthroster/pkg/scheduler/constraint"
	"github.com/paiban/monthroster/pkg/scheduler/state"
)

// 换班方式
const (
	KindSameDay  = "same_day" // 同一天两人互换
	KindExchange = "exchange" // 与另一人在另一天互换
)

// Recommender 换班推荐器
type Recommender struct {
	evaluator *Evaluator
}

// NewRecommender 创建换班推荐器
func NewRecommender(cm *constraint.Manager) *Recommender {
	return &Recommender{evaluator: NewEvaluator(cm)}
}

// Recommendation 换班推荐
type Recommendation struct {
	Request       Request `json:"request"`
	Kind          string  `json:"kind"`
	Score         float64 `json:"score"`
	ScoreDelta    float64 `json:"score_delta"`
	Reason        string  `json:"reason"`
	ImpactSummary string  `json:"impact_summary"`
	Rank          int     `json:"rank"`
}

// RecommendOptions 推荐选项
type RecommendOptions struct {
	MaxRecommendations int      `json:"max_recommendations"`
	ExcludeStaff       []string `json:"exclude_staff,omitempty"`
	AllowExchange      bool     `json:"allow_exchange"` // 是否考虑其他日期的互换
	MinScore           float64  `json:"min_score"`
}

// DefaultRecommendOptions 返回默认选项
func DefaultRecommendOptions() *RecommendOptions {
	return &RecommendOptions{
		MaxRecommendations: 5,
		AllowExchange:      false,
	}
}

// Recommend 为 (staffID, date) 单元格推荐可行的换班对象，按得分从高到低排列
func (r *Recommender) Recommend(s *state.Schedule, staffID, date string, options *RecommendOptions) ([]Recommendation, error) {
	if options == nil {
		options = DefaultRecommendOptions()
	}
	src, err := lookup(s, staffID, date)
	if err != nil {
		return nil, err
	}

	exclude := map[string]bool{staffID: true}
	for _, id := range options.ExcludeStaff {
		exclude[id] = true
	}

	var candidates []Recommendation
	consider := func(req Request, kind string) error {
		ev, err := r.evaluator.Evaluate(s, req)
		if err != nil {
			return err
		}
		if !ev.Feasible || ev.Score < options.MinScore {
			return nil
		}
		candidates = append(candidates, Recommendation{
			Request:       ev.Request,
			Kind:          kind,
			Score:         ev.Score,
			ScoreDelta:    ev.Score - ev.ScoreBefore,
			Reason:        reason(ev),
			ImpactSummary: impactSummary(ev),
		})
		return nil
	}

	srcCode := s.Get(src.staff, src.day)
	for j, st := range s.Staff {
		if exclude[st.ID] {
			continue
		}
		if s.Get(j, src.day) != srcCode && !s.IsLocked(j, src.day) {
			if err := consider(Request{StaffA: staffID, DateA: date, StaffB: st.ID, DateB: date}, KindSameDay); err != nil {
				return nil, err
			}
		}
		if !options.AllowExchange {
			continue
		}
		for d := range s.Days {
			if d == src.day || s.IsLocked(j, d) || s.Get(j, d) == srcCode {
				continue
			}
			req := Request{StaffA: staffID, DateA: date, StaffB: st.ID, DateB: s.Days[d].DateString()}
			if err := consider(req, KindExchange); err != nil {
				return nil, err
			}
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		if candidates[i].Request.StaffB != candidates[j].Request.StaffB {
			return candidates[i].Request.StaffB < candidates[j].Request.StaffB
		}
		return candidates[i].Request.DateB < candidates[j].Request.DateB
	})
	if options.MaxRecommendations > 0 && len(candidates) > options.MaxRecommendations {
		candidates = candidates[:options.MaxRecommendations]
	}
	for i := range candidates {
		candidates[i].Rank = i + 1
	}
	return candidates, nil
}

// reason 生成推荐原因
func reason(ev *Evaluation) string {
	var reasons []string
	if ev.Score > ev.ScoreBefore {
		reasons = append(reasons, "约束得分提高")
	}
	if ev.Impact != nil {
		a, b := ev.Impact.StaffA, ev.Impact.StaffB
		if closer(a) && closer(b) {
			reasons = append(reasons, "双方工时更接近目标")
		}
	}
	if len(ev.Issues) == 0 {
		reasons = append(reasons, "无约束冲突")
	}
	if len(reasons) == 0 {
		return "可行"
	}
	return strings.Join(reasons, "，")
}

// closer 换班后工时偏差不增大
func closer(si *StaffImpact) bool {
	return abs(si.HoursAfter-si.TargetHours) <= abs(si.HoursBefore-si.TargetHours)
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

// impactSummary 生成影响摘要
func impactSummary(ev *Evaluation) string {
	if ev.Impact == nil {
		return ""
	}
	return fmt.Sprintf("%s %+.1fh，%s %+.1fh",
		ev.Impact.StaffA.StaffID, ev.Impact.StaffA.HoursChange,
		ev.Impact.StaffB.StaffID, ev.Impact.StaffB.HoursChange)
}
