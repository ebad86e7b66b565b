package core

import (
	"reflect"
	"regexp"
	"strings"
	"unicode"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/pmezard/go-difflib/difflib"
)

var (
	// custom validation tags & texts
	fullNameTag   = "fullname"
	fullNameText  = "enter a first and a last name"
	fullNameRegex = regexp.MustCompile(`(\S+)\s+(\S+)`)

	schoolClassTag   = "schoolclass"
	schoolClassText  = "class name must look like 7А or 11БВ"
	schoolClassRegex = regexp.MustCompile(`^[0-9]{1,2}[А-Я]{1,2}$`)

	// password policy
	pwdMinLen   = 6
	pwdMaxLen   = 30
	pwdTag      = "password"
	pwdText     = "password must be 6 to 30 characters long and contain a digit, an uppercase letter, a lowercase letter and a special character"
	specialRune = regexp.MustCompile("[^A-Za-z0-9]")

	pwdMaxSim   = .7
	pwdSimTag   = "pwdtoosim"
	pwdSimText  = "password is too similar to the e-mail"
	requiredTag = "required"

	// overrides: rules are evaluated on bare values so the default texts have no field name
	overrides = map[string]string{
		requiredTag: "this field is required",
		"email":     "enter a valid e-mail address",
		"min":       "value is below the allowed minimum",
		"max":       "value is above the allowed maximum",
		"gte":       "value is below the allowed minimum",
		"ltefield":  "start must not be after end",
		"gtefield":  "end must not be before start",
		"eqfield":   "values do not match",
	}
)

// Validator bundles the validator and the translator used to render its errors.
type Validator struct {
	*validator.Validate
	Translator ut.Translator
}

// NewValidator returns a Validator with the english translations and custom tags registered.
func NewValidator() *Validator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	validate := validator.New()
	InitValidators(validate, translator)
	return &Validator{Validate: validate, Translator: translator}
}

// InitValidators instantiates the validator for use.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// Use JSON tag names for errors instead of Go struct names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// register custom validators
	_ = validate.RegisterValidation(fullNameTag, fullNameValidation)
	RegisterCustomTranslation(validate, translator, fullNameTag, fullNameText)

	_ = validate.RegisterValidation(schoolClassTag, schoolClassValidation)
	RegisterCustomTranslation(validate, translator, schoolClassTag, schoolClassText)

	_ = validate.RegisterValidation(pwdTag, passwordValidation)
	RegisterCustomTranslation(validate, translator, pwdTag, pwdText)

	_ = validate.RegisterValidation(pwdSimTag, passwordSimilarityValidation)
	RegisterCustomTranslation(validate, translator, pwdSimTag, pwdSimText)

	for tag, text := range overrides {
		RegisterCustomTranslation(validate, translator, tag, text, true)
	}
}

// RegisterCustomTranslation registers a custom translation for the specified validation tag.
func RegisterCustomTranslation(validate *validator.Validate, translator ut.Translator, tag, text string, override ...bool) {
	var ovrd bool
	if len(override) > 0 {
		ovrd = override[0]
	}
	_ = validate.RegisterTranslation(
		tag, translator,
		func(t ut.Translator) error { return t.Add(tag, text, ovrd) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

// FieldRule is one row of a validation table: the named field is invalid when Value does not satisfy Tag.
// Other is the value cross-field tags (eqfield, gtefield, pwdtoosim..) compare against.
type FieldRule struct {
	Field string
	Value interface{}
	Other interface{}
	Tag   string
}

// CheckFields evaluates every rule and returns one FieldError per invalid field, in table order.
func (v *Validator) CheckFields(rules []FieldRule) []FieldError {
	var fldErrs []FieldError
	for _, rule := range rules {
		var err error
		if rule.Other != nil {
			err = v.VarWithValue(rule.Value, rule.Other, rule.Tag)
		} else {
			err = v.Var(rule.Value, rule.Tag)
		}
		if err == nil {
			continue
		}
		msg := err.Error()
		if vErrs, ok := err.(validator.ValidationErrors); ok && len(vErrs) > 0 {
			msg = vErrs[0].Translate(v.Translator)
		}
		fldErrs = append(fldErrs, FieldError{Field: rule.Field, Error: msg})
	}
	return fldErrs
}

// Custom Global Validators

// SplitFullName splits "First Last" into its two first tokens.
func SplitFullName(name string) (first, last string, ok bool) {
	m := fullNameRegex.FindStringSubmatch(name)
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}

// IsValidSchoolClassName reports whether name is a grade number followed by one or two cyrillic capitals.
func IsValidSchoolClassName(name string) bool {
	return schoolClassRegex.MatchString(name)
}

func fullNameValidation(fl validator.FieldLevel) bool {
	return fullNameRegex.MatchString(fl.Field().String())
}

func schoolClassValidation(fl validator.FieldLevel) bool {
	return IsValidSchoolClassName(fl.Field().String())
}

// passwordValidation applies the password policy:
// - length: 6 to 30
// - complexity: 1 upper, 1 lower, 1 digit, 1 special
func passwordValidation(fl validator.FieldLevel) bool {
	return IsValidPassword(fl.Field().String())
}

func IsValidPassword(pwd string) bool {
	n := len([]rune(pwd))
	if n < pwdMinLen || n > pwdMaxLen {
		return false
	}
	var hasUpper, hasLower, hasDig bool
	for _, char := range pwd {
		switch {
		case unicode.IsDigit(char):
			hasDig = true
		case unicode.IsUpper(char):
			hasUpper = true
		case unicode.IsLower(char):
			hasLower = true
		}
	}
	return hasUpper && hasLower && hasDig && specialRune.MatchString(pwd)
}

// passwordSimilarityValidation rejects passwords too similar to the other value (the e-mail).
func passwordSimilarityValidation(fl validator.FieldLevel) bool {
	other := fl.Parent()
	if other.Kind() != reflect.String || other.String() == "" {
		return true
	}
	pwd := strings.ToLower(fl.Field().String())
	attr := strings.ToLower(other.String())
	if i := strings.Index(attr, "@"); i > 0 {
		attr = attr[:i]
	}
	ratio := difflib.NewMatcher(strings.Split(pwd, ""), strings.Split(attr, "")).QuickRatio()
	return ratio < pwdMaxSim
}
