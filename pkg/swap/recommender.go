package swap

import (
	"sort"

	apperrors "github.com/paiban/callrota/pkg/errors"
	"github.com/paiban/callrota/pkg/model"
)

// Recommender 换班推荐器
type Recommender struct {
	evaluator *SwapEvaluator
}

// NewRecommender 创建换班推荐器
func NewRecommender(evaluator *SwapEvaluator) *Recommender {
	return &Recommender{evaluator: evaluator}
}

// Recommendation 换班推荐
type Recommendation struct {
	Request    SwapRequest     `json:"request"`
	Score      float64         `json:"score"`
	Evaluation *SwapEvaluation `json:"evaluation"`
	Rank       int             `json:"rank"`
}

// RecommendOptions 推荐选项
type RecommendOptions struct {
	MaxRecommendations int      // 最大推荐数量
	Exclude            []string // 排除的住院医师
	AllowExchange      bool     // 是否允许互换
	MinScore           float64  // 最低得分
}

// DefaultRecommendOptions 返回默认选项
func DefaultRecommendOptions() *RecommendOptions {
	return &RecommendOptions{
		MaxRecommendations: 5,
		AllowExchange:      true,
		MinScore:           60,
	}
}

// Recommend 为某个班次推荐可接手或互换的住院医师，按得分降序
func (r *Recommender) Recommend(roster *model.Roster, source Slot, options *RecommendOptions) ([]Recommendation, error) {
	if options == nil {
		options = DefaultRecommendOptions()
	}
	holder, ok := roster.Holder(source.Day, source.Shift)
	if !ok {
		return nil, apperrors.InvalidInput("source", "该班次无人值班")
	}

	exclude := map[string]bool{holder: true}
	for _, name := range options.Exclude {
		exclude[name] = true
	}

	var candidates []Recommendation
	consider := func(req SwapRequest) error {
		eval, err := r.evaluator.EvaluateSwap(roster, &req)
		if err != nil {
			return err
		}
		if !eval.Feasible || eval.Score < options.MinScore {
			return nil
		}
		candidates = append(candidates, Recommendation{Request: req, Score: eval.Score, Evaluation: eval})
		return nil
	}

	for i := range roster.Residents {
		name := roster.Residents[i].Name
		if exclude[name] {
			continue
		}
		if err := consider(SwapRequest{Source: source, Target: name}); err != nil {
			return nil, err
		}
		if !options.AllowExchange {
			continue
		}
		for _, ex := range r.exchangeSlots(roster, source, name) {
			ex := ex
			if err := consider(SwapRequest{Source: source, Target: name, Exchange: &ex}); err != nil {
				return nil, err
			}
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	if len(candidates) > options.MaxRecommendations {
		candidates = candidates[:options.MaxRecommendations]
	}
	for i := range candidates {
		candidates[i].Rank = i + 1
	}
	return candidates, nil
}

// exchangeSlots 目标值的同类班次，互换后双方计数不变
func (r *Recommender) exchangeSlots(roster *model.Roster, source Slot, target string) []Slot {
	var slots []Slot
	for _, day := range roster.Days {
		if day.Day == source.Day {
			continue
		}
		if h, ok := roster.Holder(day.Day, source.Shift); ok && h == target {
			slots = append(slots, Slot{Day: day.Day, Shift: source.Shift})
		}
	}
	return slots
}

// FindBestMatch 返回得分最高的推荐，没有可行推荐时返回 nil
func (r *Recommender) FindBestMatch(roster *model.Roster, source Slot) (*Recommendation, error) {
	recs, err := r.Recommend(roster, source, &RecommendOptions{
		MaxRecommendations: 1,
		AllowExchange:      true,
	})
	if err != nil || len(recs) == 0 {
		return nil, err
	}
	return &recs[0], nil
}
