package model

// Alias maps a short operator-chosen name to a server UUID. PanelURL is empty
// when the alias is not bound to a specific panel.
type Alias struct {
	ID         int64
	Name       string
	ServerUUID string
	PanelURL   string
}

// IsBound reports whether the alias pins its server to one panel.
func (a Alias) IsBound() bool {
	return a.PanelURL != ""
}
