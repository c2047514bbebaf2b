package api

import "fmt"

//ErrorType are APIError types
type ErrorType int

//ErrorTypes
const (
	ErrorTypeUser ErrorType = iota
	ErrorTypeServer
	ErrorTypeDuplicate
)

//Error wraps errors in the API. If Type is ErrorTypeDuplicate, DuplicateID
//holds the id of the already existing row.
type Error struct {
	Description string
	Type        ErrorType
	Err         error
	DuplicateID string
}

func (e *Error) Error() string {
	switch e.Type {
	case ErrorTypeUser:
		return fmt.Sprintf("User Error: %s: %v", e.Description, e.Err)
	case ErrorTypeDuplicate:
		return fmt.Sprintf("Duplicate Error: %s: %v", e.Description, e.Err)
	}
	return fmt.Sprintf("Server Error: %s: %v", e.Description, e.Err)
}
