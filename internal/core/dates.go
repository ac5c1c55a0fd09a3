package core

import "strconv"

var (
	weekdays = [...]string{"domingo", "lunes", "martes", "miércoles", "jueves", "viernes", "sábado"}
	months   = [...]string{"enero", "febrero", "marzo", "abril", "mayo", "junio",
		"julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre"}
)

// Long renders the date the way the expense list shows it,
// e.g. "lunes, 15 de enero de 2024".
func (d Date) Long() string {
	if d.IsZero() {
		return ""
	}
	y, m, day := d.Date()
	return weekdays[d.Weekday()] + ", " + strconv.Itoa(day) + " de " + months[m-1] + " de " + strconv.Itoa(y)
}
