package response

import (
	"pagemark/model"
)

// UserResponse strips the password hash before a user row goes on the wire.
func UserResponse(user *model.User) *model.User {
	return &model.User{
		ID:          user.ID,
		RowStatus:   user.RowStatus,
		Username:    user.Username,
		Role:        user.Role,
		Email:       user.Email,
		Nickname:    user.Nickname,
		LastLoginTs: user.LastLoginTs,
	}
}

func UserListResponse(users []*model.User) []*model.User {
	var response []*model.User
	for _, user := range users {
		response = append(response, UserResponse(user))
	}
	return response
}
