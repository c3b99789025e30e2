package upstream

import "github.com/ent0n29/employee-api/internal/employee"

// serverEmployee is the upstream wire shape of one employee.
type serverEmployee struct {
	ID     string `json:"id"`
	Name   string `json:"employee_name"`
	Salary int    `json:"employee_salary"`
	Age    int    `json:"employee_age"`
	Title  string `json:"employee_title"`
	Email  string `json:"employee_email,omitempty"`
}

func (s serverEmployee) toEmployee() employee.Employee {
	return employee.Employee{
		ID:     s.ID,
		Name:   s.Name,
		Salary: s.Salary,
		Age:    s.Age,
		Title:  s.Title,
		Email:  s.Email,
	}
}

type listResponse struct {
	Data   []serverEmployee `json:"data"`
	Status string           `json:"status"`
}

type singleResponse struct {
	Data   *serverEmployee `json:"data"`
	Status string          `json:"status"`
}

type createPayload struct {
	Name   string `json:"employee_name"`
	Salary int    `json:"employee_salary"`
	Age    int    `json:"employee_age"`
	Title  string `json:"employee_title"`
}

func newCreatePayload(in employee.CreateInput) createPayload {
	return createPayload{Name: in.Name, Salary: in.Salary, Age: in.Age, Title: in.Title}
}

type deletePayload struct {
	Name string `json:"name"`
}

type deleteResponse struct {
	Status string `json:"status"`
	Data   bool   `json:"data"`
}
