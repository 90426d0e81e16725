package crm

import (
	"strings"

	"github.com/rotisserie/eris"
)

// Status is the lead's stage in the operator's pipeline.
type Status string

// Statuses, in pipeline order.
const (
	StatusNew       Status = "New"
	StatusContacted Status = "Contacted"
	StatusCallLater Status = "Call Later"
	StatusGoodLead  Status = "Good Lead"
	StatusHighValue Status = "High Value"
)

// Statuses lists every status in pipeline order.
var Statuses = []Status{StatusNew, StatusContacted, StatusCallLater, StatusGoodLead, StatusHighValue}

// ParseStatus matches a status name case-insensitively. Separators are
// flexible: "call-later", "call_later" and "CALL LATER" all parse.
func ParseStatus(s string) (Status, error) {
	want := canonical(s)
	for _, st := range Statuses {
		if canonical(string(st)) == want {
			return st, nil
		}
	}
	return "", eris.Errorf("crm: unknown status %q", s)
}

func canonical(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer("-", " ", "_", " ").Replace(s)
}
