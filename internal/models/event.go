package models

import "time"

type RunStage string

const (
	StageStarted   RunStage = "started"
	StageFetching  RunStage = "fetching"
	StageRanking   RunStage = "ranking"
	StageRendering RunStage = "rendering"
	StageWriting   RunStage = "writing"
	StagePublished RunStage = "published"
	StageCompleted RunStage = "completed"
	StageFailed    RunStage = "failed"
)

// RunEvent reports the progress of one digest run.
type RunEvent struct {
	RunID   string    `json:"run_id"`
	Stage   RunStage  `json:"stage"`
	Message string    `json:"message,omitempty"`
	Error   string    `json:"error,omitempty"`
	Time    time.Time `json:"time"`
}

// Final reports whether no further events follow for the run.
func (e RunEvent) Final() bool {
	return e.Stage == StageCompleted || e.Stage == StageFailed
}

func RunTopic(runID string) string {
	return "run:" + runID
}
