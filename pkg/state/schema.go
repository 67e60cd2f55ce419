package state

import (
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schema/*.json
var schemaFS embed.FS

var errSchemaViolation = errors.New("schema violation")

var schemas = map[Kind]*gojsonschema.Schema{
	KindPrice:        mustSchema("schema/avg.json"),
	KindDistribution: mustSchema("schema/distrib.json"),
	KindSeries:       mustSchema("schema/custom.json"),
}

func mustSchema(name string) *gojsonschema.Schema {
	data, err := schemaFS.ReadFile(name)
	if err != nil {
		panic(fmt.Sprintf("state: read embedded schema %s: %v", name, err))
	}

	schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(data))
	if err != nil {
		panic(fmt.Sprintf("state: compile schema %s: %v", name, err))
	}

	return schema
}

// validate checks a JSON document against the schema of kind.
func validate(kind Kind, doc []byte) error {
	schema, ok := schemas[kind]
	if !ok {
		return nil
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return fmt.Errorf("validate: %w", err)
	}

	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, re := range result.Errors() {
		msgs = append(msgs, re.String())
	}

	return fmt.Errorf("%w: %s", errSchemaViolation, strings.Join(msgs, "; "))
}
