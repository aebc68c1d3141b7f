package repo

import (
	"context"
	"encoding/json"

	"github.com/didi/gendry/builder"
	"github.com/jmoiron/sqlx"

	"github.com/subeero/mangapipe/internal/model"
)

type NotificationRepo struct {
	db *sqlx.DB
}

func NewNotificationRepo(db *sqlx.DB) *NotificationRepo {
	return &NotificationRepo{db: db}
}

type notificationRow struct {
	model.Notification
	PayloadJSON string `db:"payload_json"`
}

func (r *NotificationRepo) InsertBatch(ctx context.Context, notifications []*model.Notification) error {
	if len(notifications) == 0 {
		return nil
	}
	data := make([]map[string]interface{}, 0, len(notifications))
	for _, n := range notifications {
		payloadJSON, err := json.Marshal(n.Payload)
		if err != nil {
			return err
		}
		data = append(data, map[string]interface{}{
			"id":           n.ID,
			"recipient_id": n.RecipientID,
			"title":        n.Title,
			"message":      n.Message,
			"payload_json": string(payloadJSON),
			"ctime":        n.Ctime,
		})
	}
	sqlStr, args, err := builder.BuildInsert("notifications", data)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func (r *NotificationRepo) ListByRecipient(ctx context.Context, recipientID string, limit int) ([]*model.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	where := map[string]interface{}{
		"recipient_id": recipientID,
		"_orderby":     "ctime desc",
		"_limit":       []uint{0, uint(limit)},
	}
	fields := []string{"id", "recipient_id", "title", "message", "payload_json", "ctime"}
	sqlStr, args, err := builder.BuildSelect("notifications", where, fields)
	if err != nil {
		return nil, err
	}
	var rows []notificationRow
	if err := r.db.SelectContext(ctx, &rows, sqlStr, args...); err != nil {
		return nil, err
	}
	notifications := make([]*model.Notification, 0, len(rows))
	for i := range rows {
		n := rows[i].Notification
		if rows[i].PayloadJSON != "" {
			_ = json.Unmarshal([]byte(rows[i].PayloadJSON), &n.Payload)
		}
		notifications = append(notifications, &n)
	}
	return notifications, nil
}
