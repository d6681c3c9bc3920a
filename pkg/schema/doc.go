// Package schema provides a small type system for validating loosely typed
// payloads, such as the arguments of a model's tool call.
//
// A Schema maps field names to types. The same Schema validates decoded
// JSON and renders the JSON Schema advertised to the model, so the contract
// a model is asked to follow and the one it is checked against never drift:
//
//	plan := schema.Schema{
//	    "steps": {Type: schema.NonEmptySlice(schema.Text()), Description: "ordered steps"},
//	}
//
//	params := plan.JSONSchema() // {"type":"object","properties":{...},"required":["steps"]}
//
//	if err := plan.Validate(args); err != nil {
//	    // *AggregateError listing every failing field
//	}
package schema
