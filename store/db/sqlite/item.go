package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hrygo/cogniflow/store"
)

const itemColumns = `id, uid, user_id, type, status, raw_text, title, description,
	due_date, start_time, end_time, has_conflict, priority, tags, entities, sub_items,
	recurrence_rule, recurrence_end_date, master_item_id, is_master,
	archived_ts, deleted_ts, created_ts, updated_ts`

func (d *DB) CreateItem(ctx context.Context, create *store.Item) (*store.Item, error) {
	tags, err := store.MarshalJSONField(create.Tags, "[]")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tags: %w", err)
	}
	entities, err := store.MarshalJSONField(create.Entities, "{}")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal entities: %w", err)
	}
	subItems, err := store.MarshalJSONField(create.SubItems, "[]")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal sub items: %w", err)
	}

	fields := []string{
		"uid", "user_id", "type", "status", "raw_text", "title", "description",
		"due_date", "start_time", "end_time", "priority", "tags", "entities", "sub_items",
		"recurrence_rule", "recurrence_end_date", "master_item_id", "is_master",
	}
	args := []any{
		create.UID, create.UserID, create.Type, create.Status, create.RawText, create.Title, create.Description,
		create.DueDate, create.StartTime, create.EndTime, create.Priority, tags, entities, subItems,
		create.RecurrenceRule, create.RecurrenceEndDate, create.MasterItemID, create.IsMaster,
	}
	if create.CreatedTs != 0 {
		fields, args = append(fields, "created_ts"), append(args, create.CreatedTs)
	}
	if create.UpdatedTs != 0 {
		fields, args = append(fields, "updated_ts"), append(args, create.UpdatedTs)
	}

	stmt := `INSERT INTO item (` + strings.Join(fields, ", ") + `)
		VALUES (` + placeholders(len(args)) + `)
		RETURNING id, created_ts, updated_ts`
	if err := d.db.QueryRowContext(ctx, stmt, args...).Scan(
		&create.ID,
		&create.CreatedTs,
		&create.UpdatedTs,
	); err != nil {
		return nil, fmt.Errorf("failed to create item: %w", err)
	}
	if create.Tags == nil {
		create.Tags = []string{}
	}
	if create.Entities == nil {
		create.Entities = map[string]any{}
	}
	if create.SubItems == nil {
		create.SubItems = []store.SubItem{}
	}
	return create, nil
}

func (d *DB) ListItems(ctx context.Context, find *store.FindItem) ([]*store.Item, error) {
	where, args := []string{"1 = 1"}, []any{}

	if v := find.ID; v != nil {
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.UID; v != nil {
		where, args = append(where, "uid = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.UserID; v != nil {
		where, args = append(where, "user_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.Type; v != nil {
		where, args = append(where, "type = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.Status; v != nil {
		where, args = append(where, "status = "+placeholder(len(args)+1)), append(args, *v)
	}
	if find.ExcludeArchived {
		where = append(where, "archived_ts IS NULL")
	}
	if find.OnlyArchived {
		where = append(where, "archived_ts IS NOT NULL")
	}
	if !find.IncludeDeleted {
		where = append(where, "deleted_ts IS NULL")
	}
	if len(find.Keywords) > 0 {
		ors := make([]string, 0, len(find.Keywords))
		for _, keyword := range find.Keywords {
			pattern := "%" + keyword + "%"
			ors = append(ors, "(title LIKE ? OR description LIKE ? OR raw_text LIKE ? OR tags LIKE ?)")
			args = append(args, pattern, pattern, pattern, pattern)
		}
		where = append(where, "("+strings.Join(ors, " OR ")+")")
	}

	query := `SELECT ` + itemColumns + ` FROM item WHERE ` + strings.Join(where, " AND ") + ` ORDER BY created_ts DESC, id DESC`
	if find.Limit != nil {
		query = fmt.Sprintf("%s LIMIT %d", query, *find.Limit)
		if find.Offset != nil {
			query = fmt.Sprintf("%s OFFSET %d", query, *find.Offset)
		}
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	defer rows.Close()

	list := make([]*store.Item, 0)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate items: %w", err)
	}
	return list, nil
}

func (d *DB) UpdateItem(ctx context.Context, update *store.UpdateItem) (*store.Item, error) {
	set, args := []string{}, []any{}

	if v := update.Type; v != nil {
		set, args = append(set, "type = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.Status; v != nil {
		set, args = append(set, "status = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.Title; v != nil {
		set, args = append(set, "title = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.Description; v != nil {
		set, args = append(set, "description = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.DueDate; v != nil {
		set, args = append(set, "due_date = "+placeholder(len(args)+1)), append(args, nullableText(*v))
	}
	if v := update.StartTime; v != nil {
		set, args = append(set, "start_time = "+placeholder(len(args)+1)), append(args, nullableText(*v))
	}
	if v := update.EndTime; v != nil {
		set, args = append(set, "end_time = "+placeholder(len(args)+1)), append(args, nullableText(*v))
	}
	if v := update.Priority; v != nil {
		set, args = append(set, "priority = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.Tags; v != nil {
		raw, err := store.MarshalJSONField(*v, "[]")
		if err != nil {
			return nil, fmt.Errorf("failed to marshal tags: %w", err)
		}
		set, args = append(set, "tags = "+placeholder(len(args)+1)), append(args, raw)
	}
	if v := update.Entities; v != nil {
		raw, err := store.MarshalJSONField(*v, "{}")
		if err != nil {
			return nil, fmt.Errorf("failed to marshal entities: %w", err)
		}
		set, args = append(set, "entities = "+placeholder(len(args)+1)), append(args, raw)
	}
	if v := update.SubItems; v != nil {
		raw, err := store.MarshalJSONField(*v, "[]")
		if err != nil {
			return nil, fmt.Errorf("failed to marshal sub items: %w", err)
		}
		set, args = append(set, "sub_items = "+placeholder(len(args)+1)), append(args, raw)
	}
	if v := update.ArchivedTs; v != nil {
		if *v == 0 {
			set = append(set, "archived_ts = NULL")
		} else {
			set, args = append(set, "archived_ts = "+placeholder(len(args)+1)), append(args, *v)
		}
	}
	if v := update.DeletedTs; v != nil {
		set, args = append(set, "deleted_ts = "+placeholder(len(args)+1)), append(args, *v)
	}
	updatedTs := time.Now().Unix()
	if v := update.UpdatedTs; v != nil {
		updatedTs = *v
	}
	set, args = append(set, "updated_ts = "+placeholder(len(args)+1)), append(args, updatedTs)

	where := `id = ` + placeholder(len(args)+1)
	args = append(args, update.ID)
	if v := update.ExpectedSubItems; v != nil {
		raw, err := store.MarshalJSONField(*v, "[]")
		if err != nil {
			return nil, fmt.Errorf("failed to marshal expected sub items: %w", err)
		}
		where += ` AND sub_items = ` + placeholder(len(args)+1)
		args = append(args, raw)
	}

	stmt := `UPDATE item SET ` + strings.Join(set, ", ") + ` WHERE ` + where + ` RETURNING ` + itemColumns
	item, err := scanItem(d.db.QueryRowContext(ctx, stmt, args...))
	if err != nil {
		if update.ExpectedSubItems != nil && errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrSubItemsChanged
		}
		return nil, err
	}
	return item, nil
}

func (d *DB) ApplyConflictFlags(ctx context.Context, userID int32, conflicting []int32) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`UPDATE item SET has_conflict = 0 WHERE user_id = ? AND type = ? AND deleted_ts IS NULL`,
		userID, store.ItemTypeEvent,
	); err != nil {
		return fmt.Errorf("failed to reset conflicts: %w", err)
	}
	if len(conflicting) > 0 {
		args := []any{userID}
		for _, id := range conflicting {
			args = append(args, id)
		}
		stmt := `UPDATE item SET has_conflict = 1 WHERE user_id = ? AND id IN (` + placeholders(len(conflicting)) + `)`
		if _, err := tx.ExecContext(ctx, stmt, args...); err != nil {
			return fmt.Errorf("failed to flag conflicts: %w", err)
		}
	}
	return tx.Commit()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*store.Item, error) {
	var item store.Item
	var dueDate, startTime, endTime, recurrenceRule, recurrenceEndDate sql.NullString
	var masterItemID sql.NullInt32
	var archivedTs, deletedTs sql.NullInt64
	var tags, entities, subItems []byte

	if err := row.Scan(
		&item.ID,
		&item.UID,
		&item.UserID,
		&item.Type,
		&item.Status,
		&item.RawText,
		&item.Title,
		&item.Description,
		&dueDate,
		&startTime,
		&endTime,
		&item.HasConflict,
		&item.Priority,
		&tags,
		&entities,
		&subItems,
		&recurrenceRule,
		&recurrenceEndDate,
		&masterItemID,
		&item.IsMaster,
		&archivedTs,
		&deletedTs,
		&item.CreatedTs,
		&item.UpdatedTs,
	); err != nil {
		return nil, fmt.Errorf("failed to scan item: %w", err)
	}

	if dueDate.Valid {
		item.DueDate = &dueDate.String
	}
	if startTime.Valid {
		item.StartTime = &startTime.String
	}
	if endTime.Valid {
		item.EndTime = &endTime.String
	}
	if recurrenceRule.Valid {
		item.RecurrenceRule = &recurrenceRule.String
	}
	if recurrenceEndDate.Valid {
		item.RecurrenceEndDate = &recurrenceEndDate.String
	}
	if masterItemID.Valid {
		item.MasterItemID = &masterItemID.Int32
	}
	if archivedTs.Valid {
		item.ArchivedTs = &archivedTs.Int64
	}
	if deletedTs.Valid {
		item.DeletedTs = &deletedTs.Int64
	}
	if err := store.UnmarshalItemJSON(&item, tags, entities, subItems); err != nil {
		return nil, fmt.Errorf("failed to decode item %d: %w", item.ID, err)
	}
	return &item, nil
}
