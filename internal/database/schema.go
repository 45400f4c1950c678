package database

// Schema 值班表运行记录与班次分配
const Schema = `
CREATE TABLE IF NOT EXISTS rota_runs (
	id             UUID PRIMARY KEY,
	classification TEXT        NOT NULL,
	start_date     DATE        NOT NULL,
	horizon        INTEGER     NOT NULL,
	residents      TEXT[]      NOT NULL,
	status         TEXT        NOT NULL,
	degraded       BOOLEAN     NOT NULL DEFAULT FALSE,
	objective      BIGINT      NOT NULL DEFAULT 0,
	engine         TEXT        NOT NULL,
	wall_time_ms   BIGINT      NOT NULL DEFAULT 0,
	config         JSONB       NOT NULL,
	result         JSONB       NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_rota_runs_created_at ON rota_runs (created_at DESC);

CREATE TABLE IF NOT EXISTS rota_assignments (
	run_id   UUID    NOT NULL REFERENCES rota_runs (id) ON DELETE CASCADE,
	resident TEXT    NOT NULL,
	day      INTEGER NOT NULL,
	date     DATE    NOT NULL,
	shift    TEXT    NOT NULL,
	PRIMARY KEY (run_id, day, shift)
);

CREATE INDEX IF NOT EXISTS idx_rota_assignments_resident ON rota_assignments (resident, date);
`
