package materials

import (
	"fmt"

	"github.com/invopop/jsonschema"
)

// BuildSchema produces the machine-readable schema for authored material
// files, consumed by editor tooling and CI validation.
func BuildSchema() (*jsonschema.Schema, error) {
	reflector := jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		DoNotReference:             true,
	}

	entrySchema := reflector.Reflect(Definition{})
	if entrySchema == nil {
		return nil, fmt.Errorf("failed to reflect material schema")
	}
	entrySchema.Version = ""
	entrySchema.Title = "Material"
	entrySchema.Description = "Designer-authored physical material referenced by entities."

	root := &jsonschema.Schema{
		Version:     jsonschema.Version,
		Type:        "array",
		Title:       "Material Catalog",
		Description: "Material catalog expressed as an array of material objects.",
		Items:       entrySchema,
	}
	return root, nil
}
