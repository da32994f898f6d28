package model

// ResolutionSource records which branch of the resolver produced a result.
type ResolutionSource string

const (
	ResolutionSourceUUID   ResolutionSource = "uuid"
	ResolutionSourceAlias  ResolutionSource = "alias"
	ResolutionSourceSearch ResolutionSource = "search"
)

// Resolution is the concrete server a reference resolved to. PanelURL is
// empty when a full UUID was accepted without being able to place it on a
// panel.
type Resolution struct {
	ServerUUID string
	PanelURL   string
	Source     ResolutionSource
}

// HasPanel reports whether the resolution is bound to a panel.
func (r Resolution) HasPanel() bool {
	return r.PanelURL != ""
}
