// Package schema describes and validates the parameters of dialogue actions.
//
// A Schema maps parameter names to Fields. Each Field has a Type, a required
// flag and a description the driver can show to its language model:
//
//	params := schema.Schema{
//	    "item_name": schema.Required(schema.String(), "Name of the menu item"),
//	    "quantity":  schema.Optional(schema.Scalar(), "How many, e.g. 2 or \"two\""),
//	}
//
//	if err := schema.Validate(params, input); err != nil {
//	    for _, e := range schema.FieldErrors(err) {
//	        // ...
//	    }
//	}
//
// Schemas serialize to JSON so the driver can fetch them for entity coercion.
package schema
