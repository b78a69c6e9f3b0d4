// Package validate contains the explicit input validation functions invoked
// by HTTP handlers before any business logic runs.
//
// Each function returns the full list of field-level problems rather than
// stopping at the first one, so a client gets every invalid field in a single
// response. An empty list means the input is valid.
package validate

import (
	"net/mail"
	"strings"
	"time"

	"github.com/sakif/account-service/internal/apperror"
	"github.com/sakif/account-service/internal/model"
)

// minPasswordLength mirrors the registration and login rules: passwords
// shorter than this are rejected before any hashing happens.
const minPasswordLength = 6

// FieldError describes one invalid input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Errors is the structured result of a validation pass.
type Errors []FieldError

// Err converts the result into an error for the apperror/writeError pipeline.
// Returns nil when validation passed. The messages are joined so the single
// error string still names every failing field.
func (e Errors) Err() error {
	if len(e) == 0 {
		return nil
	}
	msgs := make([]string, len(e))
	for i, fe := range e {
		msgs[i] = fe.Message
	}
	return apperror.ValidationFailed(e[0].Field, strings.Join(msgs, "; "))
}

// Registration validates the POST /user/register payload.
func Registration(username, email, password, confirmPassword string) Errors {
	var errs Errors

	if strings.TrimSpace(username) == "" {
		errs = append(errs, FieldError{"username", "username is required"})
	}
	errs = append(errs, checkEmail(email)...)
	errs = append(errs, checkPassword(password)...)
	if confirmPassword == "" {
		errs = append(errs, FieldError{"confirmPassword", "confirmPassword is required"})
	} else if password != confirmPassword {
		errs = append(errs, FieldError{"confirmPassword", "passwords do not match"})
	}

	return errs
}

// CreateProfile validates the POST /user/profile payload. Same shape as
// registration minus the confirm-password check — that asymmetry is part of
// the observed endpoint behaviour and is kept as is.
func CreateProfile(username, email, password string) Errors {
	var errs Errors

	if strings.TrimSpace(username) == "" {
		errs = append(errs, FieldError{"username", "username is required"})
	}
	errs = append(errs, checkEmail(email)...)
	errs = append(errs, checkPassword(password)...)

	return errs
}

// Login validates the POST /user/login payload.
func Login(email, password string) Errors {
	var errs Errors
	errs = append(errs, checkEmail(email)...)
	errs = append(errs, checkPassword(password)...)
	return errs
}

// ProfileUpdate validates the sparse PUT /user/profile payload.
// Nil fields were omitted from the request and are not checked.
func ProfileUpdate(gender *string, birthday *string, height, weight *float64) Errors {
	var errs Errors

	if gender != nil {
		g := model.Gender(*gender)
		if g != model.GenderMale && g != model.GenderFemale {
			errs = append(errs, FieldError{"gender", `invalid gender, must be "male" or "female"`})
		}
	}
	if birthday != nil {
		if _, err := time.Parse("2006-01-02", *birthday); err != nil {
			errs = append(errs, FieldError{"birthday", "birthday must be a date in YYYY-MM-DD format"})
		}
	}
	if height != nil && *height < 0 {
		errs = append(errs, FieldError{"height", "height must not be negative"})
	}
	if weight != nil && *weight < 0 {
		errs = append(errs, FieldError{"weight", "weight must not be negative"})
	}

	return errs
}

// Interest validates an interest tag for the add/remove endpoints.
func Interest(interest string) Errors {
	if strings.TrimSpace(interest) == "" {
		return Errors{{"interest", "interest is required"}}
	}
	return nil
}

func checkEmail(email string) Errors {
	if strings.TrimSpace(email) == "" {
		return Errors{{"email", "email is required"}}
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return Errors{{"email", "email must be a valid address"}}
	}
	return nil
}

func checkPassword(password string) Errors {
	if password == "" {
		return Errors{{"password", "password is required"}}
	}
	if len(password) < minPasswordLength {
		return Errors{{"password", "password must be at least 6 characters"}}
	}
	return nil
}
