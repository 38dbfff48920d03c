package approval

import (
	"fmt"
	"strings"

	"facultyleave/internal/domain/auth"
)

const (
	RemarksForwardedToPrincipal = "Forwarded to Principal"
	RemarksForwardedToHR        = "Forwarded to HR"
	RemarksApproved             = "Approved"
)

// ApproverConfig decides, per campus, which role finalizes requests. Principal and HR
// are mutually exclusive for a given campus.
type ApproverConfig struct {
	Default string
	Campus  map[string]string
}

func DefaultApproverConfig() ApproverConfig {
	return ApproverConfig{Default: auth.RolePrincipal}
}

// ParseApproverConfig reads "campusA=principal,campusB=hr".
func ParseApproverConfig(defaultRole, raw string) (ApproverConfig, error) {
	cfg := ApproverConfig{Default: strings.ToLower(strings.TrimSpace(defaultRole)), Campus: map[string]string{}}
	if cfg.Default == "" {
		cfg.Default = auth.RolePrincipal
	}
	if !terminalRole(cfg.Default) {
		return ApproverConfig{}, fmt.Errorf("terminal approver must be %s or %s, got %q", auth.RolePrincipal, auth.RoleHR, cfg.Default)
	}
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		campus, role, ok := strings.Cut(pair, "=")
		campus = strings.ToLower(strings.TrimSpace(campus))
		role = strings.ToLower(strings.TrimSpace(role))
		if !ok || campus == "" {
			return ApproverConfig{}, fmt.Errorf("invalid terminal approver entry %q", pair)
		}
		if !terminalRole(role) {
			return ApproverConfig{}, fmt.Errorf("campus %s: terminal approver must be %s or %s, got %q", campus, auth.RolePrincipal, auth.RoleHR, role)
		}
		cfg.Campus[campus] = role
	}
	return cfg, nil
}

func terminalRole(role string) bool {
	return role == auth.RolePrincipal || role == auth.RoleHR
}

// TerminalRole returns the role that finalizes requests on campus.
func (c ApproverConfig) TerminalRole(campus string) string {
	if role, ok := c.Campus[strings.ToLower(strings.TrimSpace(campus))]; ok {
		return role
	}
	if c.Default == "" {
		return auth.RolePrincipal
	}
	return c.Default
}

func (c ApproverConfig) IsTerminalApprover(a Actor, campus string) bool {
	return a.Role == c.TerminalRole(campus) && a.SameCampus(campus)
}

// ForwardRemarks is the canned remark used when an HOD forwards without writing one.
func (c ApproverConfig) ForwardRemarks(campus string) string {
	if c.TerminalRole(campus) == auth.RoleHR {
		return RemarksForwardedToHR
	}
	return RemarksForwardedToPrincipal
}
