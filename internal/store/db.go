package store

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"outbreak-pipeline/internal/model"
)

var db *sqlx.DB

const schema = `
CREATE TABLE IF NOT EXISTS jobs (
	id TEXT PRIMARY KEY,
	spec TEXT,
	status TEXT,
	created_at DATETIME,
	updated_at DATETIME
);

CREATE TABLE IF NOT EXISTS job_errors (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	job_id TEXT,
	error_message TEXT,
	created_at DATETIME
);

CREATE TABLE IF NOT EXISTS stage_progress (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	job_id TEXT,
	stage TEXT,
	status TEXT,
	started_at DATETIME,
	ended_at DATETIME,
	records INTEGER,
	errors INTEGER
);

CREATE TABLE IF NOT EXISTS pipeline_logs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	job_id TEXT,
	stage TEXT,
	level TEXT,
	message TEXT,
	fields TEXT,
	created_at DATETIME
);

CREATE TABLE IF NOT EXISTS group_counts (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	job_id TEXT,
	table_name TEXT,
	fields TEXT,
	key TEXT,
	count INTEGER,
	percentage REAL,
	position INTEGER
);

CREATE TABLE IF NOT EXISTS summary_rows (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	job_id TEXT,
	variable TEXT,
	kind TEXT,
	payload TEXT
);
`

// InitDB opens the sqlite job store and creates tables as needed.
func InitDB(dbPath string) error {
	var err error
	db, err = sqlx.Open("sqlite3", dbPath)
	if err != nil {
		return err
	}
	_, err = db.Exec(schema)
	return err
}

// Close closes the store.
func Close() error {
	if db == nil {
		return nil
	}
	return db.Close()
}

// JobInfo is the stored view of an analysis job.
type JobInfo struct {
	ID        string                `json:"id" db:"id"`
	Status    string                `json:"status" db:"status"`
	CreatedAt time.Time             `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time             `json:"updatedAt" db:"updated_at"`
	Spec      model.AnalysisJobSpec `json:"spec" db:"-"`
}

// SaveJob stores a new analysis job in pending state.
func SaveJob(jobID string, spec model.AnalysisJobSpec) error {
	specJSON, err := json.Marshal(spec)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	_, err = db.Exec(`INSERT INTO jobs (id, spec, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		jobID, string(specJSON), "pending", now, now)
	return err
}

// UpdateJobStatus updates job status.
func UpdateJobStatus(jobID string, status string) error {
	now := time.Now().UTC()
	_, err := db.Exec(`UPDATE jobs SET status = ?, updated_at = ? WHERE id = ?`, status, now, jobID)
	return err
}

// SaveJobError records an error for a job.
func SaveJobError(jobID string, err error) error {
	if err == nil {
		return nil
	}
	now := time.Now().UTC()
	_, e := db.Exec(`INSERT INTO job_errors (job_id, error_message, created_at) VALUES (?, ?, ?)`,
		jobID, err.Error(), now)
	return e
}

// GetJobErrors returns the recorded error messages for a job.
func GetJobErrors(jobID string) ([]string, error) {
	var messages []string
	err := db.Select(&messages,
		`SELECT error_message FROM job_errors WHERE job_id = ? ORDER BY created_at`, jobID)
	return messages, err
}

// ListJobs returns all jobs, newest first.
func ListJobs() ([]JobInfo, error) {
	var jobs []JobInfo
	err := db.Select(&jobs,
		`SELECT id, status, created_at, updated_at FROM jobs ORDER BY created_at DESC`)
	return jobs, err
}

// GetJob fetches the full job spec and status.
func GetJob(jobID string) (JobInfo, error) {
	var row struct {
		ID        string    `db:"id"`
		Spec      string    `db:"spec"`
		Status    string    `db:"status"`
		CreatedAt time.Time `db:"created_at"`
		UpdatedAt time.Time `db:"updated_at"`
	}
	err := db.Get(&row, `SELECT id, spec, status, created_at, updated_at FROM jobs WHERE id = ?`, jobID)
	if err != nil {
		return JobInfo{}, err
	}

	info := JobInfo{ID: row.ID, Status: row.Status, CreatedAt: row.CreatedAt, UpdatedAt: row.UpdatedAt}
	if err := json.Unmarshal([]byte(row.Spec), &info.Spec); err != nil {
		return JobInfo{}, err
	}
	return info, nil
}

// StageProgress is one stage's recorded lifecycle for a job.
type StageProgress struct {
	Stage     string     `json:"stage" db:"stage"`
	Status    string     `json:"status" db:"status"`
	StartedAt *time.Time `json:"startedAt,omitempty" db:"started_at"`
	EndedAt   *time.Time `json:"endedAt,omitempty" db:"ended_at"`
	Records   int        `json:"records" db:"records"`
	Errors    int        `json:"errors" db:"errors"`
}

// SaveStageProgress records a stage transition.
func SaveStageProgress(jobID, stage, status string, startedAt, endedAt *time.Time, records, errors int) error {
	_, err := db.Exec(`INSERT INTO stage_progress (job_id, stage, status, started_at, ended_at, records, errors)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		jobID, stage, status, startedAt, endedAt, records, errors)
	return err
}

// GetStageProgress returns all stage transitions for a job in order.
func GetStageProgress(jobID string) ([]StageProgress, error) {
	var progress []StageProgress
	err := db.Select(&progress,
		`SELECT stage, status, started_at, ended_at, records, errors FROM stage_progress WHERE job_id = ? ORDER BY id`, jobID)
	return progress, err
}

// LogEntry is one stored pipeline log line.
type LogEntry struct {
	Stage     string    `json:"stage" db:"stage"`
	Level     string    `json:"level" db:"level"`
	Message   string    `json:"message" db:"message"`
	Fields    string    `json:"fields,omitempty" db:"fields"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// SavePipelineLog stores a structured log line for a job stage.
func SavePipelineLog(jobID, stage, level, message string, fields map[string]interface{}) error {
	fieldsJSON, err := json.Marshal(fields)
	if err != nil {
		return err
	}
	_, err = db.Exec(`INSERT INTO pipeline_logs (job_id, stage, level, message, fields, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		jobID, stage, level, message, string(fieldsJSON), time.Now().UTC())
	return err
}

// GetPipelineLogs returns a job's log lines in order.
func GetPipelineLogs(jobID string) ([]LogEntry, error) {
	var logs []LogEntry
	err := db.Select(&logs,
		`SELECT stage, level, message, fields, created_at FROM pipeline_logs WHERE job_id = ? ORDER BY id`, jobID)
	return logs, err
}

// StoredGroupCount is a persisted aggregation group.
type StoredGroupCount struct {
	TableName  string   `json:"table" db:"table_name"`
	Fields     string   `json:"fields" db:"fields"`
	Key        string   `json:"key" db:"key"`
	Count      int      `json:"count" db:"count"`
	Percentage *float64 `json:"percentage,omitempty" db:"percentage"`
}

// SaveGroupCounts persists one aggregation table for a job. Position keeps
// the deterministic key-tuple order from the aggregator.
func SaveGroupCounts(jobID, tableName string, groups []model.GroupCount) error {
	tx, err := db.Beginx()
	if err != nil {
		return err
	}
	for i, g := range groups {
		_, err := tx.Exec(`INSERT INTO group_counts (job_id, table_name, fields, key, count, percentage, position)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			jobID, tableName, strings.Join(g.Fields, "|"), g.Key(), g.Count, g.Percentage, i)
		if err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// GetGroupCounts returns a job's persisted aggregation rows in table order.
func GetGroupCounts(jobID string) ([]StoredGroupCount, error) {
	var groups []StoredGroupCount
	err := db.Select(&groups,
		`SELECT table_name, fields, key, count, percentage FROM group_counts WHERE job_id = ? ORDER BY table_name, position`, jobID)
	return groups, err
}

// SaveSummaryRows persists the descriptive statistics for a job.
func SaveSummaryRows(jobID string, rows []model.SummaryRow) error {
	tx, err := db.Beginx()
	if err != nil {
		return err
	}
	for _, row := range rows {
		payload, err := json.Marshal(row)
		if err != nil {
			tx.Rollback()
			return err
		}
		_, err = tx.Exec(`INSERT INTO summary_rows (job_id, variable, kind, payload) VALUES (?, ?, ?, ?)`,
			jobID, row.Variable, string(row.Kind), string(payload))
		if err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// GetSummaryRows returns a job's persisted summary statistics.
func GetSummaryRows(jobID string) ([]model.SummaryRow, error) {
	var payloads []string
	if err := db.Select(&payloads,
		`SELECT payload FROM summary_rows WHERE job_id = ? ORDER BY id`, jobID); err != nil {
		return nil, err
	}

	rows := make([]model.SummaryRow, 0, len(payloads))
	for _, p := range payloads {
		var row model.SummaryRow
		if err := json.Unmarshal([]byte(p), &row); err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}
