package validation

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	once     sync.Once
	validate *validator.Validate
)

// Get returns the shared validator instance with the geo rules registered.
func Get() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		_ = validate.RegisterValidation("latlon_pair", validateLatLonPair)
	})
	return validate
}

// Struct validates v with the shared instance.
func Struct(v interface{}) error {
	return Get().Struct(v)
}

// validateLatLonPair accepts [2]float64 or []float64 fields holding a
// [latitude, longitude] pair in range.
func validateLatLonPair(fl validator.FieldLevel) bool {
	field := fl.Field()
	if field.Kind() != reflect.Slice && field.Kind() != reflect.Array {
		return false
	}
	if field.Len() != 2 {
		return false
	}

	lat := field.Index(0).Float()
	lon := field.Index(1).Float()
	return InRange(lat, lon)
}

// InRange reports whether lat/lon form a valid WGS84 coordinate.
func InRange(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// CheckCoordinate returns a descriptive error for an out-of-range pair.
func CheckCoordinate(lat, lon float64) error {
	if lat < -90 || lat > 90 {
		return fmt.Errorf("latitude %f out of range [-90, 90]", lat)
	}
	if lon < -180 || lon > 180 {
		return fmt.Errorf("longitude %f out of range [-180, 180]", lon)
	}
	return nil
}
