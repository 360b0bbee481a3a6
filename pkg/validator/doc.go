/*
Package validator provides input validation with custom validation rules.

This package wraps go-playground/validator with an additional custom
validation:
  - qname: queue/stream name format (letters, digits, dots, underscores,
    hyphens; 1-160 bytes)

Usage:

	import "github.com/psmq/psmq/pkg/validator"

	v := validator.New()

	// Validate struct
	err := v.ValidateStruct(myStruct)

	// Validate single value
	err := v.ValidateVar(name, "qname")
*/
package validator
