package core

// Category is an entry of the static category lookup table.
type Category struct {
	ID   string
	Name string
	Icon string // Icon file name under /static/icons, without extension
}

// Categories is the fixed list offered by the expense form, in display order.
var Categories = []Category{
	{ID: "1", Name: "Ahorro", Icon: "ahorro"},
	{ID: "2", Name: "Comida", Icon: "comida"},
	{ID: "3", Name: "Casa", Icon: "casa"},
	{ID: "4", Name: "Gastos Varios", Icon: "gastos"},
	{ID: "5", Name: "Ocio", Icon: "ocio"},
	{ID: "6", Name: "Salud", Icon: "salud"},
	{ID: "7", Name: "Suscripciones", Icon: "suscripciones"},
}

// CategoryByID returns the category with the given id.
func CategoryByID(id string) (Category, bool) {
	for _, c := range Categories {
		if c.ID == id {
			return c, true
		}
	}
	return Category{}, false
}

// CategoryName returns the display name for id, or id itself when unknown.
func CategoryName(id string) string {
	if c, ok := CategoryByID(id); ok {
		return c.Name
	}
	return id
}
