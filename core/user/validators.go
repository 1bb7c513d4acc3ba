package user

import (
	"strings"
	"unicode"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/trezcool/darasa/core"
)

const (
	pwdMinLen = 8
	pwdMaxSim = 0.7 // max similarity ratio between the password and a user attribute
)

var (
	pwdTooShortText  = "password is too short; 8 characters minimum"
	pwdNotAllNumText = "password cannot be entirely numeric"
	pwdNoSpaceText   = "password cannot contain spaces"
	pwdAttrSimText   = "password is too similar to your personal info"
)

func pwdErr(text string) error {
	return core.NewValidationError(nil, core.FieldError{Field: "password", Error: text})
}

// validatePassword enforces the password rules:
// min length, no spaces, not all numeric, not similar to user attributes.
func validatePassword(pwd, name, uname, email string) error {
	pwdLen := len(pwd)
	if pwdLen < pwdMinLen {
		return pwdErr(pwdTooShortText)
	}

	var digitCount int
	for _, char := range pwd {
		if unicode.IsSpace(char) {
			return pwdErr(pwdNoSpaceText)
		}
		if unicode.IsDigit(char) {
			digitCount++
		}
	}
	if digitCount == pwdLen {
		return pwdErr(pwdNotAllNumText)
	}

	getRatio := func(pass, usrAttr string) float64 {
		if usrAttr == "" {
			return 0
		}
		return difflib.NewMatcher(strings.Split(pass, ""), strings.Split(usrAttr, "")).QuickRatio()
	}
	lpwd := strings.ToLower(pwd)
	if getRatio(lpwd, strings.ToLower(name)) >= pwdMaxSim ||
		getRatio(lpwd, uname) >= pwdMaxSim ||
		getRatio(lpwd, email) >= pwdMaxSim {
		return pwdErr(pwdAttrSimText)
	}
	return nil
}
