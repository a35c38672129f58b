package validation

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Visa types a plan step may use
const (
	VisaStudent           = "student"
	VisaWorkingHoliday    = "working_holiday"
	VisaSkilledWorker     = "skilled_worker"
	VisaGraduate          = "graduate"
	VisaVisitor           = "visitor"
	VisaPartner           = "partner"
	VisaPermanentResident = "permanent_resident"
)

// VisaTypes lists every accepted visa type
var VisaTypes = []string{
	VisaStudent,
	VisaWorkingHoliday,
	VisaSkilledWorker,
	VisaGraduate,
	VisaVisitor,
	VisaPartner,
	VisaPermanentResident,
}

// Course categories offered in the catalog
var CourseCategories = []string{"language", "vocational", "diploma", "bachelor", "master", "certificate"}

// Validation rule patterns
var (
	// CMS endpoint and content identifiers
	SlugPattern = `^[a-z0-9][a-z0-9_-]{0,63}$`

	// ISO 4217 currency
	CurrencyPattern = `^[A-Z]{3}$`

	NameMinLength = 1
	NameMaxLength = 100
)

// CompiledPatterns caches compiled regex patterns
var CompiledPatterns = struct {
	Slug     *regexp.Regexp
	Currency *regexp.Regexp
}{
	Slug:     regexp.MustCompile(SlugPattern),
	Currency: regexp.MustCompile(CurrencyPattern),
}

// IsVisaType reports whether t is a known visa type
func IsVisaType(t string) bool {
	return contains(VisaTypes, t)
}

// IsCourseCategory reports whether c is a known course category
func IsCourseCategory(c string) bool {
	return contains(CourseCategories, c)
}

// IsSlug reports whether s is safe to splice into an upstream URL path
func IsSlug(s string) bool {
	return CompiledPatterns.Slug.MatchString(s)
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

// Register adds the custom tags used in request DTOs:
// visa_type, course_category, currency, slug, notblank.
func Register(v *validator.Validate) error {
	rules := map[string]validator.Func{
		"visa_type": func(fl validator.FieldLevel) bool {
			return IsVisaType(fl.Field().String())
		},
		"course_category": func(fl validator.FieldLevel) bool {
			return IsCourseCategory(fl.Field().String())
		},
		"currency": func(fl validator.FieldLevel) bool {
			return CompiledPatterns.Currency.MatchString(fl.Field().String())
		},
		"slug": func(fl validator.FieldLevel) bool {
			return IsSlug(fl.Field().String())
		},
		"notblank": func(fl validator.FieldLevel) bool {
			return strings.TrimSpace(fl.Field().String()) != ""
		},
	}

	for tag, fn := range rules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return err
		}
	}
	return nil
}
