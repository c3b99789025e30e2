package employee

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSearchByNameIsCaseInsensitive(t *testing.T) {
	list := []Employee{{ID: "1", Name: "Alice"}, {ID: "2", Name: "Bob"}, {ID: "3", Name: "Natalia"}}

	got := SearchByName(list, "ali")

	assert.Equal(t, []Employee{{ID: "1", Name: "Alice"}, {ID: "3", Name: "Natalia"}}, got)
	assert.Len(t, SearchByName(list, "ALI"), 2)
	assert.Empty(t, SearchByName(list, "zed"))
}

func TestSearchByNameOnlyAlice(t *testing.T) {
	got := SearchByName([]Employee{{Name: "Alice"}, {Name: "Bob"}}, "ali")
	assert.Equal(t, []Employee{{Name: "Alice"}}, got)
}

func TestHighestSalary(t *testing.T) {
	assert.Equal(t, 0, HighestSalary(nil))
	assert.Equal(t, 0, HighestSalary([]Employee{}))
	assert.Equal(t, 300, HighestSalary([]Employee{{Salary: 100}, {Salary: 300}, {Salary: 200}}))
}

func TestTopNBySalary(t *testing.T) {
	assert.Equal(t, []string{"B", "A"}, TopNBySalary([]Employee{{Name: "A", Salary: 100}, {Name: "B", Salary: 200}}, 10))

	list := []Employee{
		{Name: "a", Salary: 10},
		{Name: "b", Salary: 50},
		{Name: "c", Salary: 30},
		{Name: "d", Salary: 50},
		{Name: "e", Salary: 5},
	}
	assert.Equal(t, []string{"b", "d", "c"}, TopNBySalary(list, 3), "ties keep original order")
	assert.Equal(t, []string{"b", "d", "c", "a", "e"}, TopNBySalary(list, 10))
	assert.Empty(t, TopNBySalary(list, 0))
	assert.Equal(t, "a", list[0].Name, "input is not reordered")
}

func TestTopNBySalaryDefaultLimit(t *testing.T) {
	list := make([]Employee, 0, 15)
	for i := 0; i < 15; i++ {
		list = append(list, Employee{Name: string(rune('a' + i)), Salary: i})
	}
	got := TopNBySalary(list, DefaultTopN)
	assert.Len(t, got, DefaultTopN)
	assert.Equal(t, "o", got[0])
	assert.Equal(t, "f", got[9])
}
