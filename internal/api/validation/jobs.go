package validation

import (
	"github.com/go-playground/validator/v10"

	"letraz-harvester/pkg/models"
)

// ValidateScrapeMode accepts search, recommendations and both
func ValidateScrapeMode(fl validator.FieldLevel) bool {
	return models.ScrapeMode(fl.Field().String()).IsValid()
}

// ValidateJobStatus accepts the statuses the record store knows
func ValidateJobStatus(fl validator.FieldLevel) bool {
	return models.JobStatus(fl.Field().String()).IsValid()
}

// RegisterJobValidators registers the custom validators used by request models
func RegisterJobValidators(v *validator.Validate) {
	v.RegisterValidation("scrape_mode", ValidateScrapeMode)
	v.RegisterValidation("job_status", ValidateJobStatus)
}

// New returns a validator with the job validators registered
func New() *validator.Validate {
	v := validator.New()
	RegisterJobValidators(v)
	return v
}
