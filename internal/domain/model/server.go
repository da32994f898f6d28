package model

// PanelServer is one entry of a user's server listing on a panel.
type PanelServer struct {
	UUID       string
	Identifier string
	Name       string
}

// ServerDetails holds the subset of a panel's server detail payload the
// resolver and API expose.
type ServerDetails struct {
	UUID        string
	Identifier  string
	Name        string
	Node        string
	Description string
	IsOwner     bool
}
