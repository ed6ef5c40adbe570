package validator

import (
	"reflect"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/safestep-care/safestep-service/internal/models"
)

// BusinessValidator handles business rule validation
type BusinessValidator struct {
	validate *validator.Validate
}

// NewBusinessValidator creates a new business validator
func NewBusinessValidator() *BusinessValidator {
	validate := validator.New()

	bv := &BusinessValidator{validate: validate}
	bv.registerBusinessRules()

	return bv
}

// Validate validates business rules for any struct
func (bv *BusinessValidator) Validate(s interface{}) ValidationErrors {
	err := bv.validate.Struct(s)
	if err != nil {
		return ToValidationErrors(err)
	}
	return nil
}

// ValidatePatientCreate validates patient creation business rules
func (bv *BusinessValidator) ValidatePatientCreate(req *PatientCreateRequest) ValidationErrors {
	var errors ValidationErrors

	errors = append(errors, bv.Validate(req)...)

	if req.HFOBurden != nil && *req.HFOBurden > 1000 {
		errors = append(errors, ValidationError{
			Field:   "hfo_burden",
			Message: "exceeds the plausible measurement range",
			Value:   *req.HFOBurden,
			Rule:    "business_logic",
		})
	}

	return errors
}

// ValidateZoneCreate validates safety zone creation business rules
func (bv *BusinessValidator) ValidateZoneCreate(req *ZoneCreateRequest) ValidationErrors {
	return bv.Validate(req)
}

// ValidateIncidentCreate validates incident recording business rules
func (bv *BusinessValidator) ValidateIncidentCreate(req *IncidentCreateRequest) ValidationErrors {
	var errors ValidationErrors

	errors = append(errors, bv.Validate(req)...)

	if req.OccurredAt != nil && req.OccurredAt.After(time.Now().Add(5*time.Minute)) {
		errors = append(errors, ValidationError{
			Field:   "occurred_at",
			Message: "cannot be in the future",
			Value:   req.OccurredAt,
			Rule:    "business_logic",
		})
	}

	if req.Type == models.IncidentTypeSeizure && req.DurationSeconds == nil && req.SeizureType == nil {
		errors = append(errors, ValidationError{
			Field:   "seizure_type",
			Message: "seizure incidents need a seizure type or duration",
			Rule:    "business_logic",
		})
	}

	return errors
}

// ValidateSessionEnd validates seizure session closing conditions
func (bv *BusinessValidator) ValidateSessionEnd(req *SessionEndRequest, session *models.SeizureSession) ValidationErrors {
	var errors ValidationErrors

	errors = append(errors, bv.Validate(req)...)

	if session.Status != models.SessionStatusActive {
		errors = append(errors, ValidationError{
			Field:   "status",
			Message: "session is already completed",
			Value:   session.Status,
			Rule:    "business_logic",
		})
	}

	return errors
}

// ValidateMedicationDates validates prescription date ordering
func (bv *BusinessValidator) ValidateMedicationDates(start, end *time.Time) ValidationErrors {
	var errors ValidationErrors

	if start != nil && end != nil && end.Before(*start) {
		errors = append(errors, ValidationError{
			Field:   "end_date",
			Message: "must be after start date",
			Value:   end,
			Rule:    "business_logic",
		})
	}

	return errors
}

// ValidateProgressUpdate enforces that training progress never decreases
func (bv *BusinessValidator) ValidateProgressUpdate(req *ProgressUpdateRequest, existing *models.TrainingProgress) ValidationErrors {
	var errors ValidationErrors

	errors = append(errors, bv.Validate(req)...)

	if existing != nil && req.Percent < existing.Percent {
		errors = append(errors, ValidationError{
			Field:   "percent",
			Message: "cannot decrease completed progress",
			Value:   req.Percent,
			Rule:    "business_logic",
		})
	}

	return errors
}

// registerBusinessRules registers custom business rule validators
func (bv *BusinessValidator) registerBusinessRules() {
	// Epilepsy type validation
	bv.validate.RegisterValidation("epilepsy_type", func(fl validator.FieldLevel) bool {
		t := fl.Field().String()
		validTypes := []models.EpilepsyType{
			models.EpilepsyFocal, models.EpilepsyGeneralized,
			models.EpilepsyCombined, models.EpilepsyUnknown,
		}
		for _, vt := range validTypes {
			if models.EpilepsyType(t) == vt {
				return true
			}
		}
		return false
	})

	// Seizure frequency validation
	bv.validate.RegisterValidation("seizure_frequency", func(fl validator.FieldLevel) bool {
		f := fl.Field().String()
		validFreqs := []models.SeizureFrequency{
			models.FrequencyDaily, models.FrequencyWeekly,
			models.FrequencyMonthly, models.FrequencyRare,
		}
		for _, vf := range validFreqs {
			if models.SeizureFrequency(f) == vf {
				return true
			}
		}
		return false
	})

	// Past date validation (birth dates and similar)
	bv.validate.RegisterValidation("past_date", func(fl validator.FieldLevel) bool {
		field := fl.Field()

		if field.Kind() == reflect.Ptr && field.IsNil() {
			return true
		}

		var d time.Time
		if field.Kind() == reflect.Ptr {
			d = field.Elem().Interface().(time.Time)
		} else {
			d = field.Interface().(time.Time)
		}

		return d.Before(time.Now())
	})
}
