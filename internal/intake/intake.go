// Package intake turns raw booking submissions into ledger transactions.
//
// The ledger stores whatever it is handed, so this is the only place where
// booking fields are checked: names must be present, dates must parse and be
// ordered, and the amount must be a non-negative number. The amount is kept
// as submitted text, since that text is part of the block digest.
package intake

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmerrifield20/hotelledger/internal/ledger"
)

// DateLayout is the calendar date format accepted for check-in and check-out.
const DateLayout = "2006-01-02"

// ErrInvalidBooking is matched by every *ValidationError.
var ErrInvalidBooking = errors.New("invalid booking")

// BookingForm carries the raw fields of a booking as submitted by the HTML
// form or the JSON API.
type BookingForm struct {
	CustomerName string      `form:"customer_name" json:"customer_name" binding:"required"`
	RoomNumber   string      `form:"room_number"   json:"room_number"   binding:"required"`
	CheckIn      string      `form:"check_in"      json:"check_in"      binding:"required"`
	CheckOut     string      `form:"check_out"     json:"check_out"     binding:"required"`
	Amount       json.Number `form:"amount"        json:"amount"        binding:"required"`
}

// ValidationError lists every rejected field with a human readable reason.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = name + ": " + e.Fields[name]
	}
	return fmt.Sprintf("invalid booking: %s", strings.Join(parts, "; "))
}

// Is makes errors.Is(err, ErrInvalidBooking) hold.
func (e *ValidationError) Is(target error) bool { return target == ErrInvalidBooking }

func (e *ValidationError) add(field, reason string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, exists := e.Fields[field]; !exists {
		e.Fields[field] = reason
	}
}

// ParseBooking validates f and returns the typed transaction.
func ParseBooking(f BookingForm) (ledger.Transaction, error) {
	verr := &ValidationError{}

	name := strings.TrimSpace(f.CustomerName)
	if name == "" {
		verr.add("customer_name", "is required")
	}
	room := strings.TrimSpace(f.RoomNumber)
	if room == "" {
		verr.add("room_number", "is required")
	}

	checkIn, inErr := parseDate(f.CheckIn)
	if inErr != nil {
		verr.add("check_in", inErr.Error())
	}
	checkOut, outErr := parseDate(f.CheckOut)
	if outErr != nil {
		verr.add("check_out", outErr.Error())
	}
	if inErr == nil && outErr == nil && checkOut.Before(checkIn) {
		verr.add("check_out", "must not be before check-in")
	}

	amount, err := parseAmount(f.Amount.String())
	if err != nil {
		verr.add("amount", err.Error())
	}

	if len(verr.Fields) > 0 {
		return ledger.Transaction{}, verr
	}
	return ledger.Transaction{
		CustomerName: name,
		RoomNumber:   room,
		CheckIn:      checkIn.Format(DateLayout),
		CheckOut:     checkOut.Format(DateLayout),
		Amount:       amount,
	}, nil
}

func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, errors.New("is required")
	}
	d, err := time.Parse(DateLayout, raw)
	if err != nil {
		return time.Time{}, errors.New("must be a date in YYYY-MM-DD form")
	}
	return d, nil
}

// amountPattern is the HTML "valid floating-point number" grammar, which is
// what a number input submits.
var amountPattern = regexp.MustCompile(`^-?(\d+|\d*\.\d+)([eE][+-]?\d+)?$`)

// parseAmount checks raw and returns it as the stored amount text.
func parseAmount(raw string) (ledger.Amount, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errors.New("is required")
	}
	if !amountPattern.MatchString(raw) {
		return "", errors.New("must be a number")
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsInf(v, 0) {
		return "", errors.New("must be a number")
	}
	if v < 0 {
		return "", errors.New("must not be negative")
	}
	return ledger.Amount(raw), nil
}

var formFieldNames = map[string]string{
	"CustomerName": "customer_name",
	"RoomNumber":   "room_number",
	"CheckIn":      "check_in",
	"CheckOut":     "check_out",
	"Amount":       "amount",
}

// FromBindError converts a request binding failure into a *ValidationError.
// Errors that are not field validation failures (malformed JSON, oversized
// bodies) are reported against the "body" field.
func FromBindError(err error) *ValidationError {
	verr := &ValidationError{}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		for _, fe := range fieldErrs {
			name, ok := formFieldNames[fe.Field()]
			if !ok {
				name = fe.Field()
			}
			verr.add(name, "is required")
		}
		return verr
	}
	verr.add("body", err.Error())
	return verr
}
