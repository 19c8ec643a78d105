package llm

import "google.golang.org/genai"

// Schema is the response schema sent with each request.
type Schema = genai.Schema

func String() *Schema { return &Schema{Type: genai.TypeString} }

func Bool() *Schema { return &Schema{Type: genai.TypeBoolean} }

func Array(items *Schema) *Schema {
	return &Schema{Type: genai.TypeArray, Items: items}
}

func Object(props map[string]*Schema, required ...string) *Schema {
	return &Schema{Type: genai.TypeObject, Properties: props, Required: required}
}
