package cmd

// toolForJSON is a struct used for marshaling a tool to JSON for machine-readable output.
type toolForJSON struct {
	Name     string   `json:"name"`
	Command  string   `json:"command"`
	Required []string `json:"required,omitempty"`
	Fixture  string   `json:"fixture,omitempty"`
}
