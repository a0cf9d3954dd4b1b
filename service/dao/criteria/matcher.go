package criteria

import (
	"github.com/viant/approvals/service/dao"
)

// FilterByStatus reports whether a record in the given workflow status
// matches the supplied parameters. An absent or unrelated parameter set
// matches everything; a "Status" parameter matches either a single value
// or any member of a value set.
func FilterByStatus(status string, parameters []*dao.Parameter) bool {
	for _, parameter := range parameters {
		if parameter.Name != "Status" {
			continue
		}
		switch actual := parameter.Value.(type) {
		case string:
			if status != actual {
				return false
			}
		case []string:
			matched := false
			for _, candidate := range actual {
				if status == candidate {
					matched = true
					break
				}
			}
			if !matched {
				return false
			}
		}
	}
	return true
}
