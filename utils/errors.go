package utils

import (
	"github.com/pkg/errors"
)

// NewNegativeValueError is used when a parameter that must be non-negative is not.
func NewNegativeValueError(name string, val float64) error {
	return errors.Errorf("%s must be non-negative, got %v", name, val)
}

// NewIndexOutOfRangeError is used when an element index falls outside its container.
func NewIndexOutOfRangeError(kind string, idx, size int) error {
	return errors.Errorf("%s index %d out of range [0, %d)", kind, idx, size)
}
