package validator // import "pagemark/validator"

import (
	"github.com/pkg/errors"

	"pagemark/model"
	"pagemark/store"
	"pagemark/util"
)

func ValidateSignupRequest(s *store.Store, user *model.UserSignupRequest) error {
	if user == nil {
		return errors.New("user is nil")
	}
	if user.Username == "" {
		return errors.New("username is empty")
	}
	if !util.UIDMatcher.MatchString(user.Username) {
		return errors.New("username is invalid")
	}
	if user.Password == "" {
		return errors.New("password is empty")
	}
	if err := validatePassword(user.Password); err != nil {
		return err
	}
	if user, _ := s.GetUser(&model.FindUser{Username: &user.Username}); user != nil {
		return errors.New("Username already exists")
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < 6 {
		return errors.New("password is too short")
	}
	return nil
}
