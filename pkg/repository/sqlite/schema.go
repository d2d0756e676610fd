package sqlite

var schema = []string{
	`CREATE TABLE IF NOT EXISTS risks (
		risk_id     INTEGER PRIMARY KEY AUTOINCREMENT,
		risk_title  TEXT NOT NULL,
		dept        TEXT,
		review_date TEXT NOT NULL,
		risk_level  TEXT NOT NULL DEFAULT 'Low',
		risk_owner  TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS risk_tasks (
		id      INTEGER PRIMARY KEY AUTOINCREMENT,
		risk_id INTEGER NOT NULL REFERENCES risks(risk_id) ON DELETE CASCADE,
		label   TEXT NOT NULL,
		weight  INTEGER NOT NULL DEFAULT 0,
		done    BOOLEAN NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS idx_risk_tasks_risk_id ON risk_tasks(risk_id)`,
	`CREATE INDEX IF NOT EXISTS idx_risks_review_date ON risks(review_date)`,
}

// Schema returns the DDL statements applied by Migrate, in order
func Schema() []string {
	out := make([]string, len(schema))
	copy(out, schema)
	return out
}
