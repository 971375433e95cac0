package enrichment

import (
	"errors"
	"fmt"
	"strings"

	"lokalfakta/server/internal/models"
)

// ErrInvalidInput wraps every validation failure of a GenerateInput
var ErrInvalidInput = errors.New("invalid input")

// Validate checks a GenerateInput before any external call is made
func Validate(in models.GenerateInput) error {
	if strings.TrimSpace(in.Address) == "" {
		return fmt.Errorf("%w: address is required", ErrInvalidInput)
	}
	if !in.Type.Valid() {
		return fmt.Errorf("%w: type must be %q or %q", ErrInvalidInput, models.ListingTypeSale, models.ListingTypeRent)
	}
	if err := validateCategory(in.Category); err != nil {
		return err
	}
	if in.Price <= 0 {
		return fmt.Errorf("%w: price must be positive", ErrInvalidInput)
	}
	if in.Size <= 0 {
		return fmt.Errorf("%w: size must be positive", ErrInvalidInput)
	}

	if (in.Lat == nil) != (in.Lng == nil) {
		return fmt.Errorf("%w: lat and lng must be given together", ErrInvalidInput)
	}
	if in.Lat != nil {
		if *in.Lat < -90 || *in.Lat > 90 {
			return fmt.Errorf("%w: lat out of range", ErrInvalidInput)
		}
		if *in.Lng < -180 || *in.Lng > 180 {
			return fmt.Errorf("%w: lng out of range", ErrInvalidInput)
		}
	}
	return nil
}

func validateCategory(category string) error {
	if strings.TrimSpace(category) == "" {
		return fmt.Errorf("%w: category is required", ErrInvalidInput)
	}
	for _, segment := range strings.Split(category, ",") {
		c := models.Category(strings.TrimSpace(segment))
		if !c.Valid() {
			return fmt.Errorf("%w: unknown category %q", ErrInvalidInput, segment)
		}
	}
	return nil
}
