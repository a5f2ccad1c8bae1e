package header

// MenuEvent is a user action on the header menu.
type MenuEvent int

const (
	// ToggleMenu flips the menu between open and closed.
	ToggleMenu MenuEvent = iota
	// LinkActivated closes the menu after a navigation.
	LinkActivated
)

// Menu is the open/closed state of the collapsible navigation.
// The zero value is closed.
type Menu struct {
	Open bool
}

// Apply returns the menu after e.
func (m Menu) Apply(e MenuEvent) Menu {
	switch e {
	case ToggleMenu:
		return Menu{Open: !m.Open}
	case LinkActivated:
		return Menu{}
	default:
		return m
	}
}

// NavClass is the CSS class of the nav element.
func (m Menu) NavClass() string {
	if m.Open {
		return "header-nav open"
	}
	return "header-nav"
}
