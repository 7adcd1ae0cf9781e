package domain

import "github.com/yanizio/eventsite/internal/dnscheck"

// Instruction is one DNS record the operator must create.
type Instruction struct {
	Type     string `json:"type"`
	Name     string `json:"name"`
	Value    string `json:"value"`
	Priority string `json:"priority"`
}

// GenerateInstructions returns the records that make host verifiable.
// Apex hosts cannot carry a CNAME, so they get A records when ingress IPs
// are configured and an ALIAS/ANAME hint otherwise.  Every other host gets
// a CNAME, with A records offered as an alternative.
func GenerateInstructions(host string, want dnscheck.Expectation) []Instruction {
	var out []Instruction
	apex := IsApex(host)

	if !apex && want.CNAME != "" {
		out = append(out, Instruction{Type: "CNAME", Name: host, Value: want.CNAME, Priority: "recommended"})
	}

	prio := "recommended"
	if len(out) > 0 {
		prio = "alternative"
	}
	for _, ip := range want.IPs {
		out = append(out, Instruction{Type: "A", Name: host, Value: ip, Priority: prio})
	}

	if apex && len(want.IPs) == 0 && want.CNAME != "" {
		out = append(out, Instruction{Type: "ALIAS", Name: host, Value: want.CNAME, Priority: "recommended"})
	}
	return out
}
