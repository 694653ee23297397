package domain

import (
	"errors"
	"regexp"

	"github.com/go-playground/validator/v10"
)

var (
	usernameRe = regexp.MustCompile(`^[A-Za-z0-9_]{5,25}$`)
	roomIDRe   = regexp.MustCompile(`^[A-Za-z0-9_-]{5,35}$`)
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernameRe.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("roomid", func(fl validator.FieldLevel) bool {
		return roomIDRe.MatchString(fl.Field().String())
	})
	return v
}

type JoinRequest struct {
	RoomID   RoomID   `validate:"required,roomid"`
	Username Username `validate:"required,username"`
}

// ValidateJoin reports the first offending field as a domain error.
func ValidateJoin(req JoinRequest) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	switch verrs[0].Field() {
	case "RoomID":
		return ErrInvalidRoomID
	default:
		return ErrInvalidUsername
	}
}
