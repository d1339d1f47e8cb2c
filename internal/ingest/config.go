package ingest

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"tutorial-scraper/internal/filter"
	"tutorial-scraper/internal/models"
	"tutorial-scraper/internal/search"
)

// Config is everything one run needs to know. It is passed by value so concurrent or
// repeated runs with different settings never share state.
type Config struct {
	Languages          []string       `validate:"dive,required"`
	Subjects           []string       `validate:"dive,required"`
	MinDurationSeconds int            `validate:"gt=0"`
	MaxResultsPerQuery int            `validate:"gt=0"`
	Recency            models.Recency `validate:"omitempty,recency"`
	ExcludedPatterns   []string

	// QuotaBudget caps the quota units a run may spend; 0 means no local cap and
	// only the platform's own quota response halts the run. MaxQueries caps the
	// number of planned queries issued; 0 means all of them. RelevanceLanguage is
	// the platform's relevance hint; empty means "en".
	QuotaBudget       int     `validate:"gte=0"`
	MaxQueries        int     `validate:"gte=0"`
	RequestsPerSecond float64 `validate:"gte=0"`
	RelevanceLanguage string
}

// DefaultConfig returns a config with the default thresholds and no categories
func DefaultConfig() Config {
	return Config{
		MinDurationSeconds: filter.DefaultMinDurationSeconds,
		MaxResultsPerQuery: search.DefaultMaxResults,
		Recency:            models.RecencyAny,
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("recency", func(fl validator.FieldLevel) bool {
		return models.Recency(fl.Field().String()).Valid()
	})
	return v
}

// Validate returns a *models.ConfigError listing every problem, or nil
func (c Config) Validate() error {
	var problems []string

	if len(c.Languages) == 0 && len(c.Subjects) == 0 {
		problems = append(problems, "at least one language or subject is required")
	}

	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return &models.ConfigError{Problems: append(problems, err.Error())}
		}
		for _, fe := range fieldErrs {
			problems = append(problems, describe(fe))
		}
	}

	if len(problems) > 0 {
		return &models.ConfigError{Problems: problems}
	}
	return nil
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "gt":
		return fmt.Sprintf("%s must be greater than %s, got %v", fe.Field(), fe.Param(), fe.Value())
	case "gte":
		return fmt.Sprintf("%s must not be negative, got %v", fe.Field(), fe.Value())
	case "required":
		return fmt.Sprintf("%s must not contain empty names", strings.SplitN(fe.Field(), "[", 2)[0])
	case "recency":
		return fmt.Sprintf("%s %q is not one of any, hour, today, week, month, year", fe.Field(), fe.Value())
	default:
		return fmt.Sprintf("%s failed %q validation", fe.Field(), fe.Tag())
	}
}

func (c Config) rules() filter.Rules {
	return filter.Rules{
		Languages:          c.Languages,
		Subjects:           c.Subjects,
		ExcludedPatterns:   c.ExcludedPatterns,
		MinDurationSeconds: c.MinDurationSeconds,
	}
}

func (c Config) recency() models.Recency {
	if c.Recency == "" {
		return models.RecencyAny
	}
	return c.Recency
}
