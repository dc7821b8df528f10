package model

// Attributes is the flat record of properties a remote object reports
// about itself. The traversal engine copies these verbatim and never
// interprets individual fields.
type Attributes struct {
	Role        string   `yaml:"r"            json:"r"`            // role name, e.g. "push button"
	Name        string   `yaml:"n,omitempty"  json:"n,omitempty"`  // visible label / accessible name
	Description string   `yaml:"d,omitempty"  json:"d,omitempty"`  // accessibility description
	ChildCount  int      `yaml:"cc,omitempty" json:"cc,omitempty"` // child count as reported, pre-truncation
	Interfaces  []string `yaml:"if,omitempty" json:"if,omitempty"` // implemented a11y interfaces
}
