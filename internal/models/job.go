package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

type JobStatus string

const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusProcessing JobStatus = "in_progress"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// TranscodeParams are the target encoding parameters applied to every
// chunk of a run.
type TranscodeParams struct {
	VideoCodec   string `json:"video_codec" db:"video_codec" redis:"video_codec" validate:"required"`
	VideoBitrate string `json:"video_bitrate" db:"video_bitrate" redis:"video_bitrate" validate:"omitempty"`
	AudioCodec   string `json:"audio_codec" db:"audio_codec" redis:"audio_codec" validate:"required"`
	AudioBitrate string `json:"audio_bitrate" db:"audio_bitrate" redis:"audio_bitrate" validate:"omitempty"`
	Width        int    `json:"width" db:"width" redis:"width" validate:"omitempty,min=1"`
	Height       int    `json:"height" db:"height" redis:"height" validate:"omitempty,min=1"`
	FrameRate    int    `json:"frame_rate" db:"frame_rate" redis:"frame_rate" validate:"omitempty,min=1"`
	UsePlaylist  bool   `json:"use_playlist" db:"use_playlist" redis:"use_playlist" validate:"omitempty"`
}

// Value stores the params as jsonb.
func (t TranscodeParams) Value() (driver.Value, error) {
	return json.Marshal(t)
}

func (t *TranscodeParams) Scan(src interface{}) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, t)
	case string:
		return json.Unmarshal([]byte(v), t)
	case nil:
		return nil
	default:
		return fmt.Errorf("cannot scan %T into TranscodeParams", src)
	}
}

// PipelineJob is one queued pipeline run over a single input file.
type PipelineJob struct {
	JobID        string          `json:"job_id" db:"job_id" redis:"job_id" validate:"omitempty"`
	InputS3Key   string          `json:"input_s3_key" db:"input_s3_key" redis:"input_s3_key" validate:"required"`
	InputBucket  string          `json:"input_bucket" db:"input_bucket" redis:"input_bucket" validate:"required"`
	OutputS3Key  string          `json:"output_s3_key" db:"output_s3_key" redis:"output_s3_key" validate:"required"`
	OutputBucket string          `json:"output_bucket" db:"output_bucket" redis:"output_bucket" validate:"required"`
	Scenario     string          `json:"scenario" db:"scenario" redis:"scenario" validate:"required,oneof=extract-replace full split-transcode-merge"`
	Parts        int             `json:"parts" db:"parts" redis:"parts" validate:"omitempty,min=1"`
	Transcode    TranscodeParams `json:"transcode" db:"transcode_params" redis:"transcode" validate:"omitempty"`
	Status       JobStatus       `json:"status" db:"status" redis:"status" validate:"omitempty"`
	Error        string          `json:"error,omitempty" db:"error" redis:"error" validate:"omitempty"`
	EnqueuedAt   time.Time       `json:"enqueued_at" db:"enqueued_at" redis:"enqueued_at" validate:"omitempty"`
	StartedAt    time.Time       `json:"started_at" db:"started_at" redis:"started_at" validate:"omitempty"`
	CompletedAt  time.Time       `json:"completed_at" db:"completed_at" redis:"completed_at" validate:"omitempty"`
}

// JobSubmitInput is the API payload that creates a PipelineJob.
type JobSubmitInput struct {
	InputS3Key string          `json:"input_s3_key" validate:"required,lte=1024"`
	Scenario   string          `json:"scenario" validate:"required,oneof=extract-replace full split-transcode-merge"`
	Parts      int             `json:"parts" validate:"omitempty,min=1"`
	Transcode  TranscodeParams `json:"transcode" validate:"omitempty"`
}

type JobList struct {
	Jobs       []*PipelineJob `json:"jobs"`
	TotalCount int            `json:"total_count"`
}
