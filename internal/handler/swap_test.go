package handler

import (
	"net/http"
	"strings"
	"testing"
)

func createSeniorWeek(t *testing.T, base string) (string, [][]string) {
	t.Helper()
	resp := do(t, "POST", base, "application/json", seniorWeek)
	expectStatus(t, resp, http.StatusCreated)
	var created struct {
		RunID  string `json:"run_id"`
		Roster *struct {
			Days []struct {
				Holders []string `json:"holders"`
			} `json:"days"`
		} `json:"roster"`
	}
	decode(t, resp, &created)
	if created.Roster == nil {
		t.Fatal("Expected a roster")
	}
	var holders [][]string
	for _, d := range created.Roster.Days {
		holders = append(holders, d.Holders)
	}
	return created.RunID, holders
}

// otherResident 返回与 holder 不同的住院医师
func otherResident(holder string) string {
	for _, n := range []string{"A", "B", "C", "D"} {
		if n != holder {
			return n
		}
	}
	return ""
}

func TestEvaluateSwap(t *testing.T) {
	srv, _ := newTestServer(t, RouteOptions{})
	base := srv.URL + "/api/v1/rotas"
	id, holders := createSeniorWeek(t, base)

	target := otherResident(holders[0][1])
	resp := do(t, "POST", base+"/"+id+"/swaps/evaluate", "application/json",
		`{"source": {"day": 0, "shift": "night"}, "target": "`+target+`"}`)
	expectStatus(t, resp, http.StatusOK)
	var eval struct {
		Type   string  `json:"type"`
		Score  float64 `json:"score"`
		Impact []struct {
			Name string `json:"name"`
		} `json:"impact"`
	}
	decode(t, resp, &eval)
	if eval.Type != "take_over" {
		t.Errorf("Type = %s, want take_over", eval.Type)
	}
	if len(eval.Impact) != 2 {
		t.Errorf("Expected impact on 2 residents, got %+v", eval.Impact)
	}

	tests := []struct {
		name string
		body string
		want int
	}{
		{"目标与原值班人相同", `{"source": {"day": 0, "shift": "night"}, "target": "` + holders[0][1] + `"}`, http.StatusBadRequest},
		{"未知住院医师", `{"source": {"day": 0, "shift": "night"}, "target": "Z"}`, http.StatusNotFound},
		{"缺少目标", `{"source": {"day": 0, "shift": "night"}}`, http.StatusBadRequest},
		{"无效JSON", `{"source":`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := do(t, "POST", base+"/"+id+"/swaps/evaluate", "application/json", tt.body)
			expectStatus(t, resp, tt.want)
		})
	}
}

func TestRecommendSwap(t *testing.T) {
	srv, _ := newTestServer(t, RouteOptions{})
	base := srv.URL + "/api/v1/rotas"
	id, holders := createSeniorWeek(t, base)

	resp := do(t, "GET", base+"/"+id+"/swaps/recommend?day=3&shift=day&limit=2", "", "")
	expectStatus(t, resp, http.StatusOK)
	var recs []struct {
		Rank    int     `json:"rank"`
		Score   float64 `json:"score"`
		Request struct {
			Target string `json:"target"`
		} `json:"request"`
	}
	decode(t, resp, &recs)
	if len(recs) > 2 {
		t.Errorf("Expected at most 2 recommendations, got %d", len(recs))
	}
	for i, rec := range recs {
		if rec.Rank != i+1 {
			t.Errorf("Rank = %d, want %d", rec.Rank, i+1)
		}
		if rec.Request.Target == holders[3][0] {
			t.Error("Current holder must not be recommended")
		}
		if i > 0 && rec.Score > recs[i-1].Score {
			t.Error("Recommendations must be sorted by score")
		}
	}

	for _, q := range []string{"day=x&shift=day", "day=3&shift=evening", "day=99&shift=day", "day=3&shift=day&limit=0"} {
		resp := do(t, "GET", base+"/"+id+"/swaps/recommend?"+q, "", "")
		expectStatus(t, resp, http.StatusBadRequest)
	}
}

func TestSwap_InfeasibleRun(t *testing.T) {
	srv, _ := newTestServer(t, RouteOptions{})
	body := strings.Replace(seniorWeek, `{"name": "A"}`,
		`{"name": "A", "vacation_days": [3], "claimed": [{"day": 3, "shift": "night"}]}`, 1)

	resp := do(t, "POST", srv.URL+"/api/v1/rotas", "application/json", body)
	expectStatus(t, resp, http.StatusCreated)
	var created createResponse
	decode(t, resp, &created)

	resp = do(t, "GET", srv.URL+"/api/v1/rotas/"+created.RunID+"/swaps/recommend?day=0&shift=day", "", "")
	expectStatus(t, resp, http.StatusUnprocessableEntity)
}
