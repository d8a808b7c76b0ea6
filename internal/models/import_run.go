package models

import "time"

// ImportRun records one report file passing through the pipeline.
type ImportRun struct {
	RunID        string    `json:"run_id"`
	ClubID       string    `json:"club_id"`
	FileName     string    `json:"file_name"`
	Digest       string    `json:"digest"`
	Families     []string  `json:"families"`
	Players      int       `json:"players"`
	Transactions int       `json:"transactions"`
	Skipped      int       `json:"skipped"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
}
