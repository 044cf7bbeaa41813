package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/hrygo/cogniflow/store"
)

const assistTaskColumns = `id, item_id, user_id, status, task_text, search_keywords, result,
	attempt_count, max_attempts, error_message, created_ts, processed_ts, completed_ts`

func (d *DB) CreateAssistTask(ctx context.Context, create *store.AssistTask) (*store.AssistTask, error) {
	fields := []string{"item_id", "user_id", "status", "task_text", "search_keywords", "attempt_count", "max_attempts"}
	args := []any{create.ItemID, create.UserID, create.Status, create.TaskText, create.SearchKeywords, create.AttemptCount, create.MaxAttempts}
	if create.CreatedTs != 0 {
		fields, args = append(fields, "created_ts"), append(args, create.CreatedTs)
	}

	stmt := `INSERT INTO assist_task (` + strings.Join(fields, ", ") + `)
		VALUES (` + placeholders(len(args)) + `)
		RETURNING id, created_ts`
	if err := d.db.QueryRowContext(ctx, stmt, args...).Scan(&create.ID, &create.CreatedTs); err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrAssistTaskInFlight
		}
		return nil, fmt.Errorf("failed to create assist task: %w", err)
	}
	return create, nil
}

func (d *DB) ListAssistTasks(ctx context.Context, find *store.FindAssistTask) ([]*store.AssistTask, error) {
	where, args := []string{"1 = 1"}, []any{}

	if v := find.ID; v != nil {
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.ItemID; v != nil {
		where, args = append(where, "item_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.UserID; v != nil {
		where, args = append(where, "user_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.Status; v != nil {
		where, args = append(where, "status = "+placeholder(len(args)+1)), append(args, *v)
	}
	if find.Eligible {
		where, args = append(where, "status = "+placeholder(len(args)+1)+" AND attempt_count < max_attempts"), append(args, store.AssistTaskPending)
	}

	query := `SELECT ` + assistTaskColumns + ` FROM assist_task WHERE ` + strings.Join(where, " AND ") + ` ORDER BY created_ts ASC, id ASC`
	if find.Limit != nil {
		query = fmt.Sprintf("%s LIMIT %d", query, *find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query assist tasks: %w", err)
	}
	defer rows.Close()

	list := make([]*store.AssistTask, 0)
	for rows.Next() {
		task, err := scanAssistTask(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate assist tasks: %w", err)
	}
	return list, nil
}

func (d *DB) ClaimAssistTask(ctx context.Context, id int32, processedTs int64) (*store.AssistTask, error) {
	stmt := `UPDATE assist_task
		SET status = $1, attempt_count = attempt_count + 1, processed_ts = $2
		WHERE id = $3 AND status = $4 AND attempt_count < max_attempts
		RETURNING ` + assistTaskColumns
	task, err := scanAssistTask(d.db.QueryRowContext(ctx, stmt, store.AssistTaskProcessing, processedTs, id, store.AssistTaskPending))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return task, nil
}

func (d *DB) UpdateAssistTask(ctx context.Context, update *store.UpdateAssistTask) error {
	set, args := []string{}, []any{}

	if v := update.Status; v != nil {
		set, args = append(set, "status = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.Result; v != nil {
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to marshal assist result: %w", err)
		}
		set, args = append(set, "result = "+placeholder(len(args)+1)), append(args, string(raw))
	}
	if v := update.ErrorMessage; v != nil {
		set, args = append(set, "error_message = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.CompletedTs; v != nil {
		set, args = append(set, "completed_ts = "+placeholder(len(args)+1)), append(args, *v)
	}
	if len(set) == 0 {
		return nil
	}

	stmt := `UPDATE assist_task SET ` + strings.Join(set, ", ") + ` WHERE id = ` + placeholder(len(args)+1)
	args = append(args, update.ID)
	if _, err := d.db.ExecContext(ctx, stmt, args...); err != nil {
		return fmt.Errorf("failed to update assist task: %w", err)
	}
	return nil
}

func (d *DB) DeleteAssistTasks(ctx context.Context, delete *store.DeleteAssistTask) error {
	if _, err := d.db.ExecContext(ctx, `DELETE FROM assist_task WHERE item_id = $1`, delete.ItemID); err != nil {
		return fmt.Errorf("failed to delete assist tasks: %w", err)
	}
	return nil
}

func scanAssistTask(row rowScanner) (*store.AssistTask, error) {
	var task store.AssistTask
	var searchKeywords, errorMessage sql.NullString
	var processedTs, completedTs sql.NullInt64
	var result []byte

	if err := row.Scan(
		&task.ID,
		&task.ItemID,
		&task.UserID,
		&task.Status,
		&task.TaskText,
		&searchKeywords,
		&result,
		&task.AttemptCount,
		&task.MaxAttempts,
		&errorMessage,
		&task.CreatedTs,
		&processedTs,
		&completedTs,
	); err != nil {
		return nil, fmt.Errorf("failed to scan assist task: %w", err)
	}

	if searchKeywords.Valid {
		task.SearchKeywords = &searchKeywords.String
	}
	if errorMessage.Valid {
		task.ErrorMessage = &errorMessage.String
	}
	if processedTs.Valid {
		task.ProcessedTs = &processedTs.Int64
	}
	if completedTs.Valid {
		task.CompletedTs = &completedTs.Int64
	}
	if len(result) > 0 {
		task.Result = &store.AssistResult{}
		if err := json.Unmarshal(result, task.Result); err != nil {
			return nil, fmt.Errorf("failed to decode assist result %d: %w", task.ID, err)
		}
	}
	return &task, nil
}
