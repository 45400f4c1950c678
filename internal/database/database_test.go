package database

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/lib/pq"

	apperrors "github.com/paiban/callrota/pkg/errors"
)

func TestTranslate(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want apperrors.Code
	}{
		{"无记录", sql.ErrNoRows, apperrors.CodeNotFound},
		{"包装后的无记录", fmt.Errorf("query: %w", sql.ErrNoRows), apperrors.CodeNotFound},
		{"唯一约束冲突", &pq.Error{Code: "23505"}, apperrors.CodeInvalidInput},
		{"外键冲突", &pq.Error{Code: "23503"}, apperrors.CodeInvalidInput},
		{"连接失败", &pq.Error{Code: "08006"}, apperrors.CodeDatabaseError},
		{"其他错误", errors.New("boom"), apperrors.CodeDatabaseError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := apperrors.GetCode(Translate(tt.err, "op")); got != tt.want {
				t.Errorf("Translate() code = %s, want %s", got, tt.want)
			}
		})
	}

	if Translate(nil, "op") != nil {
		t.Error("Translate(nil) should be nil")
	}
}

func TestTruncateQuery(t *testing.T) {
	long := strings.Repeat("x", 300)
	if got := truncateQuery(long); len(got) != 203 {
		t.Errorf("Expected truncated length 203, got %d", len(got))
	}
	if got := truncateQuery("SELECT 1"); got != "SELECT 1" {
		t.Errorf("Short query should be unchanged, got %q", got)
	}
}

func TestSchema(t *testing.T) {
	for _, table := range []string{"rota_runs", "rota_assignments"} {
		if !strings.Contains(Schema, "CREATE TABLE IF NOT EXISTS "+table) {
			t.Errorf("Schema missing table %s", table)
		}
	}
}
