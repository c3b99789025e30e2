package employee

// Employee is the outward shape of an employee record.
type Employee struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Salary int    `json:"salary"`
	Age    int    `json:"age"`
	Title  string `json:"title"`
	Email  string `json:"email,omitempty"`
}

// CreateInput is the body accepted when creating an employee. It is forwarded
// upstream unmodified; the upstream server owns validation.
type CreateInput struct {
	Name   string `json:"name"`
	Salary int    `json:"salary"`
	Age    int    `json:"age"`
	Title  string `json:"title"`
}

// DeleteOutcome reports the result of a delete-by-id. Name is set only when
// Deleted is true.
type DeleteOutcome struct {
	Name    string `json:"name,omitempty"`
	Deleted bool   `json:"deleted"`
}
