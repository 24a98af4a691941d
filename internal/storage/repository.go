package storage

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"time"

	"github.com/micro-ha/reolink-nvr/addon/internal/model"
)

var ErrNotFound = errors.New("not found")

func (r *Repository) ListCameras(ctx context.Context) (map[int]model.Camera, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT channel, name, model, firmware, online, first_seen_at, last_seen_at, updated_at
		FROM cameras`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := map[int]model.Camera{}
	for rows.Next() {
		var (
			camera               model.Camera
			lastSeen             sql.NullString
			firstSeen, updatedAt string
		)
		if err := rows.Scan(&camera.Channel, &camera.Name, &camera.Model, &camera.Firmware, &camera.Online, &firstSeen, &lastSeen, &updatedAt); err != nil {
			return nil, err
		}
		camera.LastSeenAt = toTimePtr(lastSeen)
		if ts, err := time.Parse(time.RFC3339Nano, firstSeen); err == nil {
			camera.FirstSeenAt = ts.UTC()
		}
		if ts, err := time.Parse(time.RFC3339Nano, updatedAt); err == nil {
			camera.UpdatedAt = ts.UTC()
		}
		result[camera.Channel] = camera
	}
	return result, rows.Err()
}

func (r *Repository) UpsertCameras(ctx context.Context, cameras []model.Camera) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO cameras (channel, name, model, firmware, online, first_seen_at, last_seen_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(channel) DO UPDATE SET
			name=excluded.name,
			model=excluded.model,
			firmware=excluded.firmware,
			online=excluded.online,
			last_seen_at=excluded.last_seen_at,
			updated_at=excluded.updated_at`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, camera := range cameras {
		if _, err := stmt.ExecContext(
			ctx,
			camera.Channel,
			camera.Name,
			camera.Model,
			camera.Firmware,
			camera.Online,
			camera.FirstSeenAt.UTC().Format(time.RFC3339Nano),
			fromTimePtr(camera.LastSeenAt),
			camera.UpdatedAt.UTC().Format(time.RFC3339Nano),
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *Repository) ListOverrides(ctx context.Context) (map[int]model.CameraOverride, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT channel, name, icon, comment, created_at, updated_at
		FROM camera_overrides`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := map[int]model.CameraOverride{}
	for rows.Next() {
		var (
			override             model.CameraOverride
			name, icon, comment  sql.NullString
			createdAt, updatedAt string
		)
		if err := rows.Scan(&override.Channel, &name, &icon, &comment, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		override.Name = strPtr(name)
		override.Icon = strPtr(icon)
		override.Comment = strPtr(comment)
		if ts, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			override.CreatedAt = ts.UTC()
		}
		if ts, err := time.Parse(time.RFC3339Nano, updatedAt); err == nil {
			override.UpdatedAt = ts.UTC()
		}
		result[override.Channel] = override
	}
	return result, rows.Err()
}

func (r *Repository) UpsertOverride(ctx context.Context, channel int, name, icon, comment *string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO camera_overrides (channel, name, icon, comment, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(channel) DO UPDATE SET
			name=excluded.name,
			icon=excluded.icon,
			comment=excluded.comment,
			updated_at=excluded.updated_at`,
		channel, fromStringPtr(name), fromStringPtr(icon), fromStringPtr(comment), now, now)
	return err
}

// PatchOverride updates only the provided fields of an existing override.
func (r *Repository) PatchOverride(ctx context.Context, channel int, name, icon, comment *string) error {
	sets := "updated_at = ?"
	args := []any{time.Now().UTC().Format(time.RFC3339Nano)}
	if name != nil {
		sets += ", name = ?"
		args = append(args, *name)
	}
	if icon != nil {
		sets += ", icon = ?"
		args = append(args, *icon)
	}
	if comment != nil {
		sets += ", comment = ?"
		args = append(args, *comment)
	}
	args = append(args, channel)

	res, err := r.db.ExecContext(ctx, `UPDATE camera_overrides SET `+sets+` WHERE channel = ?`, args...)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) InsertEvents(ctx context.Context, events []model.Event) error {
	if len(events) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO events (id, channel, type, detail, active, observed_at)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, event := range events {
		if _, err := stmt.ExecContext(
			ctx,
			event.ID,
			event.Channel,
			event.Type,
			event.Detail,
			event.Active,
			event.ObservedAt.UTC().Format(time.RFC3339Nano),
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ListEvents returns the newest events first, optionally scoped to a channel.
func (r *Repository) ListEvents(ctx context.Context, channel *int, limit int) ([]model.Event, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	query := `SELECT id, channel, type, detail, active, observed_at FROM events`
	args := []any{}
	if channel != nil {
		query += ` WHERE channel = ?`
		args = append(args, *channel)
	}
	query += ` ORDER BY observed_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []model.Event{}
	for rows.Next() {
		var (
			event      model.Event
			observedAt string
		)
		if err := rows.Scan(&event.ID, &event.Channel, &event.Type, &event.Detail, &event.Active, &observedAt); err != nil {
			return nil, err
		}
		if ts, err := time.Parse(time.RFC3339Nano, observedAt); err == nil {
			event.ObservedAt = ts.UTC()
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

// PruneEvents deletes event rows older than the retention cutoff.
func (r *Repository) PruneEvents(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE observed_at < ?`, cutoff.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// MergeCameraViews builds the API read model from registry and override rows.
func MergeCameraViews(cameras map[int]model.Camera, overrides map[int]model.CameraOverride) []model.CameraView {
	views := make([]model.CameraView, 0, len(cameras))
	for channel, camera := range cameras {
		view := model.CameraView{
			Channel:    channel,
			Name:       camera.Name,
			Model:      camera.Model,
			Firmware:   camera.Firmware,
			Online:     camera.Online,
			LastSeenAt: camera.LastSeenAt,
		}
		if !camera.FirstSeenAt.IsZero() {
			firstSeen := camera.FirstSeenAt
			view.FirstSeenAt = &firstSeen
		}
		if override, ok := overrides[channel]; ok {
			view.CustomName = override.Name
			view.Icon = override.Icon
			view.Comment = override.Comment
		}
		views = append(views, view)
	}
	sort.Slice(views, func(i, j int) bool { return views[i].Channel < views[j].Channel })
	return views
}
