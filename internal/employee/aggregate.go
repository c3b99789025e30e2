package employee

import (
	"sort"
	"strings"
)

// DefaultTopN is the number of names returned by the top earners query.
const DefaultTopN = 10

// SearchByName returns the employees whose name contains fragment, ignoring
// case, in their original order.
func SearchByName(list []Employee, fragment string) []Employee {
	needle := strings.ToLower(fragment)
	out := make([]Employee, 0, len(list))
	for _, e := range list {
		if strings.Contains(strings.ToLower(e.Name), needle) {
			out = append(out, e)
		}
	}
	return out
}

// HighestSalary returns the largest salary in list, or 0 for an empty list.
func HighestSalary(list []Employee) int {
	highest := 0
	for i, e := range list {
		if i == 0 || e.Salary > highest {
			highest = e.Salary
		}
	}
	return highest
}

// TopNBySalary returns up to n names ordered by descending salary. Equal
// salaries keep their original relative order.
func TopNBySalary(list []Employee, n int) []string {
	if n <= 0 || len(list) == 0 {
		return []string{}
	}
	sorted := make([]Employee, len(list))
	copy(sorted, list)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Salary > sorted[j].Salary
	})
	if n > len(sorted) {
		n = len(sorted)
	}
	names := make([]string, 0, n)
	for _, e := range sorted[:n] {
		names = append(names, e.Name)
	}
	return names
}
