// Defines the validation interface for requests.

package dto

// Validatable is implemented by request types that can validate their fields.
// Wrap uses this interface as a type constraint so that every request type
// provides validation.
type Validatable interface {
	Validate() error
}
