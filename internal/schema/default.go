package schema

import _ "embed"

//go:embed titanic.yaml
var defaultSchema []byte

// Default returns the passenger schema the bundled model was trained on.
// A deployment monitoring a different model supplies its own schema file.
func Default() *Schema {
	s, err := Parse(defaultSchema)
	if err != nil {
		panic("schema: embedded default schema is invalid: " + err.Error())
	}
	return s
}
