package model

import "fmt"

// Handle identifies one remote accessible object on the a11y bus: the
// owning application's unique bus name plus the object path within it.
// Handles are comparable values and are used as map keys; they are never
// dereferenced directly.
type Handle struct {
	Sender string `yaml:"sender" json:"sender"` // unique bus name of the owning application
	Path   string `yaml:"path"   json:"path"`   // object path within the application
}

// IsZero reports whether the handle is unset.
func (h Handle) IsZero() bool {
	return h.Sender == "" && h.Path == ""
}

func (h Handle) String() string {
	return fmt.Sprintf("%s%s", h.Sender, h.Path)
}
