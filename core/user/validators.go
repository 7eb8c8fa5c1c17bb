package user

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/trezcool/coursedesk/core"
)

var (
	allRolesTag  = "allroles"
	allRolesText = "invalid roles"

	usernameOrEmailTag  = "username_or_email"
	usernameOrEmailText = "one of username or email is required"

	// password policy
	pwdMinLen     = 8
	pwdMinLenTag  = "pwdminlen"
	pwdMinLenText = fmt.Sprintf("password must contain at least %d characters", pwdMinLen)

	pwdNotAllNumTag  = "pwdnotallnum"
	pwdNotAllNumText = "password cannot be entirely numeric"

	pwdMaxSim      = .7
	pwdAttrSimTag  = "pwdtoosim"
	pwdAttrSimText = "password cannot be similar to user attributes"
)

// InitValidators registers the user validations on validate.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(allRolesTag, allRolesValidation)
	core.RegisterCustomTranslation(validate, translator, allRolesTag, allRolesText)

	validate.RegisterStructValidation(newAdminStructValidation, NewAdmin{})
	core.RegisterCustomTranslation(validate, translator, usernameOrEmailTag, usernameOrEmailText)
	core.RegisterCustomTranslation(validate, translator, pwdMinLenTag, pwdMinLenText)
	core.RegisterCustomTranslation(validate, translator, pwdNotAllNumTag, pwdNotAllNumText)
	core.RegisterCustomTranslation(validate, translator, pwdAttrSimTag, pwdAttrSimText)
}

// allRolesValidation checks that provided user roles are all in AllRoles
func allRolesValidation(fl validator.FieldLevel) bool {
	roles, ok := fl.Field().Interface().([]string)
	if !ok {
		return false
	}
	known := append([]string(nil), AllRoles...)
	sort.Strings(known)
	for _, role := range roles {
		idx := sort.SearchStrings(known, role)
		if idx == len(known) || known[idx] != role {
			return false
		}
	}
	return true
}

func newAdminStructValidation(sl validator.StructLevel) {
	na, ok := sl.Current().Interface().(NewAdmin)
	if !ok {
		return
	}
	if na.Username == "" && na.Email == "" {
		sl.ReportError(na.Username, "username", "Username", usernameOrEmailTag, "")
		sl.ReportError(na.Email, "email", "Email", usernameOrEmailTag, "")
	}
	if tag := passwordPolicy(na.Password, na.Name, na.Username, na.Email); tag != "" {
		sl.ReportError(na.Password, "password", "Password", tag, "")
	}
}

// passwordPolicy returns the tag of the first rule pwd breaks, or "":
// - minLen: 8
// - not all numeric
// - not similar to the user attributes
func passwordPolicy(pwd string, attrs ...string) string {
	if len(pwd) < pwdMinLen {
		return pwdMinLenTag
	}
	if strings.IndexFunc(pwd, func(r rune) bool { return !unicode.IsDigit(r) }) < 0 {
		return pwdNotAllNumTag
	}
	for _, attr := range attrs {
		if attr == "" {
			continue
		}
		ratio := difflib.NewMatcher(strings.Split(pwd, ""), strings.Split(attr, "")).QuickRatio()
		if ratio >= pwdMaxSim {
			return pwdAttrSimTag
		}
	}
	return ""
}
