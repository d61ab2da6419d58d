package handler

import (
	"fmt"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	bookingDomain "github.com/Kilat-Pet-Delivery/service-rental/internal/domain/booking"
)

var registerOnce sync.Once

// RegisterValidators adds the custom binding tags used by request DTOs to
// gin's validator engine. Safe to call more than once.
func RegisterValidators() error {
	var err error
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			err = fmt.Errorf("unexpected validator engine %T", binding.Validator.Engine())
			return
		}
		err = v.RegisterValidation("calendar_date", validateCalendarDate)
	})
	return err
}

// validateCalendarDate accepts YYYY-MM-DD strings naming a real day.
func validateCalendarDate(fl validator.FieldLevel) bool {
	_, err := bookingDomain.ParseDate(fl.Field().String())
	return err == nil
}
