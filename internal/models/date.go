package models

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout es el formato de fecha calendario usado en la API
const DateLayout = "2006-01-02"

// Date representa una fecha calendario sin hora
type Date struct {
	time.Time
}

// NewDate crea una fecha truncada a medianoche UTC
func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// UnmarshalJSON acepta fechas en formato YYYY-MM-DD
func (d *Date) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(data), `"`)
	if raw == "" || raw == "null" {
		d.Time = time.Time{}
		return nil
	}
	t, err := time.Parse(DateLayout, raw)
	if err != nil {
		return fmt.Errorf("invalid date %q, expected YYYY-MM-DD", raw)
	}
	d.Time = t
	return nil
}

// MarshalJSON serializa la fecha en formato YYYY-MM-DD
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.Format(DateLayout) + `"`), nil
}

// Ptr retorna la fecha como *time.Time, nil si es cero
func (d *Date) Ptr() *time.Time {
	if d == nil || d.IsZero() {
		return nil
	}
	t := d.Time
	return &t
}
