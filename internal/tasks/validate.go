package tasks

import (
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// Field names used as validation error keys.
const (
	FieldName    = "nombreTarea"
	FieldDueDate = "fechaVencimientoTarea"
	FieldOwnerID = "idUsuario"
)

const (
	MinNameLength  = 9
	MaxNameLength  = 255
	MaxOwnerDigits = 10
)

var MaxDueDate = time.Date(2100, time.December, 31, 0, 0, 0, 0, time.UTC)

type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "invalid task: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(field, msg string) {
	if e.Fields == nil {
		e.Fields = map[string]string{}
	}
	e.Fields[field] = msg
}

func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// validateName returns the trimmed name.
func validateName(name string, verr *ValidationError) string {
	name = strings.TrimSpace(name)
	switch n := utf8.RuneCountInString(name); {
	case n == 0:
		verr.add(FieldName, "El nombre es obligatorio.")
	case n < MinNameLength:
		verr.add(FieldName, "Debe tener al menos 9 caracteres.")
	case n > MaxNameLength:
		verr.add(FieldName, "Máximo 255 caracteres.")
	}
	return name
}

// validateDueDate checks that due is today or later; a zero latest disables the upper bound.
func validateDueDate(due, today, latest time.Time, verr *ValidationError) {
	switch {
	case due.IsZero():
		verr.add(FieldDueDate, "La fecha es obligatoria.")
	case due.Before(today):
		verr.add(FieldDueDate, "La fecha debe ser hoy o futura.")
	case !latest.IsZero() && due.After(latest):
		verr.add(FieldDueDate, "La fecha no puede ser posterior al 31/12/2100.")
	}
}

func validateOwnerID(id int64, verr *ValidationError) {
	switch {
	case id <= 0:
		verr.add(FieldOwnerID, "Debe ser un número positivo distinto a 0.")
	case len(strconv.FormatInt(id, 10)) > MaxOwnerDigits:
		verr.add(FieldOwnerID, "No debe exceder 10 dígitos.")
	}
}
