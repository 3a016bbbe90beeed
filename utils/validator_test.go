package utils

import (
	"testing"
	"time"

	"servicehub/models"

	"github.com/stretchr/testify/assert"
)

func TestValidateStruct_BookingRequest(t *testing.T) {
	start := time.Date(2025, time.March, 3, 10, 0, 0, 0, time.UTC)

	valid := models.BookingRequest{CustomerID: "c1", ServiceID: "s1", WindowStart: start, WindowEnd: start.Add(time.Hour)}
	assert.Nil(t, ValidateStruct(valid))

	invalid := models.BookingRequest{WindowStart: start, WindowEnd: start.Add(-time.Hour), MinRating: 7}
	errs := ValidateStruct(invalid)
	assert.Equal(t, "This field is required", errs["CustomerID"])
	assert.Equal(t, "This field is required", errs["ServiceID"])
	assert.Equal(t, "Must be after WindowStart", errs["WindowEnd"])
	assert.Equal(t, "Must be at most 5", errs["MinRating"])
}

func TestFormatValidationErrors_Ordered(t *testing.T) {
	msg := FormatValidationErrors(map[string]string{"b": "two", "a": "one"})
	assert.Equal(t, "a: one; b: two", msg)
}
