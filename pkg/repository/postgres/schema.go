package postgres

var schema = []string{
	`CREATE TABLE IF NOT EXISTS risks (
		risk_id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		risk_title VARCHAR(255) NOT NULL,
		dept VARCHAR(255),
		review_date DATE NOT NULL
	)`,
	`ALTER TABLE risks ADD COLUMN IF NOT EXISTS risk_level VARCHAR(32) NOT NULL DEFAULT 'Low'`,
	`ALTER TABLE risks ADD COLUMN IF NOT EXISTS risk_owner VARCHAR(255)`,
	`CREATE TABLE IF NOT EXISTS risk_tasks (
		id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		risk_id BIGINT NOT NULL REFERENCES risks(risk_id) ON DELETE CASCADE,
		label VARCHAR(255) NOT NULL,
		weight INTEGER NOT NULL DEFAULT 0,
		done BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`CREATE INDEX IF NOT EXISTS idx_risk_tasks_risk_id ON risk_tasks (risk_id)`,
	`CREATE INDEX IF NOT EXISTS idx_risks_review_date ON risks (review_date)`,
}

// Schema returns the DDL statements applied by Migrate, in order
func Schema() []string {
	out := make([]string, len(schema))
	copy(out, schema)
	return out
}
