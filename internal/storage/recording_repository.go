package storage

import (
	"context"
	"time"

	"echolot/internal/models"
)

// RecordingRepository is the data access layer for practice recordings.
type RecordingRepository struct {
	db *DB
}

// NewRecordingRepository creates a new RecordingRepository.
func NewRecordingRepository(db *DB) *RecordingRepository {
	return &RecordingRepository{db: db}
}

// Create inserts a new practice recording.
func (r *RecordingRepository) Create(ctx context.Context, rec *models.PracticeRecording) error {
	rec.CreatedAt = time.Now()
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO practice_recordings (task_id, segment_index, stored_filename, created_at)
		VALUES (?, ?, ?, ?)`,
		rec.TaskID, rec.SegmentIndex, rec.StoredFilename, rec.CreatedAt)
	if err != nil {
		return err
	}
	rec.ID, err = res.LastInsertId()
	return err
}

// ListByTask returns the recordings of one task ordered by segment.
func (r *RecordingRepository) ListByTask(ctx context.Context, taskID string) ([]models.PracticeRecording, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, task_id, segment_index, stored_filename, created_at
		FROM practice_recordings
		WHERE task_id = ?
		ORDER BY segment_index, created_at`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []models.PracticeRecording
	for rows.Next() {
		var rec models.PracticeRecording
		if err := rows.Scan(&rec.ID, &rec.TaskID, &rec.SegmentIndex, &rec.StoredFilename, &rec.CreatedAt); err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}
