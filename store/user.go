package store

import (
	"fmt"
	"strings"

	"pagemark/log"
	"pagemark/model"
	"pagemark/util"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

func (s *Store) GetUser(find *model.FindUser) (*model.User, error) {
	if find.ID != nil {
		if cache, ok := s.UserCache.Load(*find.ID); ok {
			return cache.(*model.User), nil
		}
	}

	list, err := s.ListUsers(find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}

	user := list[0]
	s.UserCache.Store(user.ID, user)
	return user, nil
}

func (s *Store) ListUsers(find *model.FindUser) ([]*model.User, error) {
	where, args := []string{"1 = 1"}, []any{}

	if v := find.ID; v != nil {
		where, args = append(where, "id = ?"), append(args, *v)
	}
	if v := find.Username; v != nil {
		where, args = append(where, "username = ?"), append(args, *v)
	}
	if v := find.Role; v != nil {
		where, args = append(where, "role = ?"), append(args, *v)
	}
	if v := find.Email; v != nil {
		where, args = append(where, "email = ?"), append(args, *v)
	}
	if v := find.RowStatus; v != nil {
		where, args = append(where, "row_status = ?"), append(args, *v)
	}

	// Here will return password_hash, so need to be careful
	// If need to response to client, need to remove password_hash
	// Use response.UserResponse to remove password_hash
	query := `
	SELECT
		id,
		username,
		role,
		email,
		nickname,
		password_hash,
		created_ts,
		updated_ts,
		last_login_ts,
		row_status
	FROM user
	WHERE ` + strings.Join(where, " AND ") + ` ORDER BY created_ts DESC`

	// zap not support escape character, so need to fallback.
	// https://github.com/uber-go/zap/issues/963
	log.Debug("SQL query and args:")
	log.Fallback("Debug", fmt.Sprintf("query: %s\nargs: %s\n", query, args))

	rows, err := s.db.Query(query, args...)
	if err != nil {
		log.Debug("Error querying users", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	list := make([]*model.User, 0)
	for rows.Next() {
		var user model.User
		// The ordering of query results should be consistent with query var
		if err := rows.Scan(
			&user.ID,
			&user.Username,
			&user.Role,
			&user.Email,
			&user.Nickname,
			&user.PasswordHash,
			&user.CreatedTs,
			&user.UpdatedTs,
			&user.LastLoginTs,
			&user.RowStatus,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan user")
		}
		list = append(list, &user)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate users")
	}
	return list, nil
}

func (s *Store) CreateUser(user *model.User) (*model.User, error) {
	now := util.NowMs()
	stmt := `
	INSERT INTO user (username, role, email, nickname, password_hash, created_ts, updated_ts, row_status)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	RETURNING id
	`
	newUser := *user
	newUser.CreatedTs = now
	newUser.UpdatedTs = now
	newUser.RowStatus = model.RowStatusNormal
	if err := s.db.QueryRow(stmt,
		newUser.Username,
		newUser.Role,
		newUser.Email,
		newUser.Nickname,
		newUser.PasswordHash,
		newUser.CreatedTs,
		newUser.UpdatedTs,
		newUser.RowStatus,
	).Scan(&newUser.ID); err != nil {
		return nil, errors.Wrap(err, "failed to create user")
	}

	s.UserCache.Store(newUser.ID, &newUser)
	return &newUser, nil
}

func (s *Store) UpdateUserLastLogin(userID int32) error {
	stmt := `UPDATE user SET last_login_ts = ? WHERE id = ?`
	if _, err := s.db.Exec(stmt, util.NowMs(), userID); err != nil {
		return errors.Wrap(err, "failed to update last login")
	}
	s.UserCache.Delete(userID)
	return nil
}
