package repo

import (
	"context"

	"github.com/didi/gendry/builder"
	"github.com/jmoiron/sqlx"

	"github.com/subeero/mangapipe/internal/model"
)

type UserRepo struct {
	db *sqlx.DB
}

func NewUserRepo(db *sqlx.DB) *UserRepo {
	return &UserRepo{db: db}
}

var userFields = []string{"id", "name", "role", "ctime"}

func (r *UserRepo) Create(ctx context.Context, user *model.User) error {
	data := map[string]interface{}{
		"id":    user.ID,
		"name":  user.Name,
		"role":  user.Role,
		"ctime": user.Ctime,
	}
	sqlStr, args, err := builder.BuildInsert("users", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

// ListReviewers returns the operator accounts with review visibility, the
// recipient set for aggregate sync notifications.
func (r *UserRepo) ListReviewers(ctx context.Context) ([]*model.User, error) {
	where := map[string]interface{}{
		"role in":  []string{model.RoleAdmin, model.RoleModerator},
		"_orderby": "ctime asc",
	}
	sqlStr, args, err := builder.BuildSelect("users", where, userFields)
	if err != nil {
		return nil, err
	}
	var users []*model.User
	if err := r.db.SelectContext(ctx, &users, sqlStr, args...); err != nil {
		return nil, err
	}
	return users, nil
}
