package core

// PermissionSet grants and denies named permissions. Denial wins: a
// permission present in both lists is treated as denied.
type PermissionSet struct {
	Granted []string `json:"granted,omitempty" yaml:"granted,omitempty"`
	Denied  []string `json:"denied,omitempty" yaml:"denied,omitempty"`
}

// IsAllowed reports whether perm is permitted: present in Granted and absent
// from Denied.
func (p PermissionSet) IsAllowed(perm string) bool {
	if contains(p.Denied, perm) {
		return false
	}
	return contains(p.Granted, perm)
}

func contains(xs []string, x string) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}

// CostLimit caps wall-clock, token, and monetary spend for one execution.
type CostLimit struct {
	MaxExecutionTimeSecs int64   `json:"max_execution_time_secs,omitempty" yaml:"max_execution_time_secs,omitempty"`
	MaxNodeTimeSecs      int64   `json:"max_node_time_secs,omitempty" yaml:"max_node_time_secs,omitempty"`
	MaxTokens            int64   `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty"`
	MaxCostUSD           float64 `json:"max_cost_usd,omitempty" yaml:"max_cost_usd,omitempty"`
}

// ToolWhitelist allow/block-lists tool refs. An empty AllowedTools means "all
// allowed unless blocked"; BlockedTools always wins regardless of AllowedTools.
type ToolWhitelist struct {
	AllowedTools []string `json:"allowed_tools,omitempty" yaml:"allowed_tools,omitempty"`
	BlockedTools []string `json:"blocked_tools,omitempty" yaml:"blocked_tools,omitempty"`
}

// IsToolAllowed reports whether toolRef may be dispatched under this whitelist.
func (w ToolWhitelist) IsToolAllowed(toolRef string) bool {
	if contains(w.BlockedTools, toolRef) {
		return false
	}
	if len(w.AllowedTools) == 0 {
		return true
	}
	return contains(w.AllowedTools, toolRef)
}

// Policy is the triple of permissions, cost limits, and tool whitelist that
// gates execution of every node in a run.
type Policy struct {
	Name        string        `json:"name,omitempty" yaml:"name,omitempty"`
	Permissions PermissionSet `json:"permissions" yaml:"permissions"`
	CostLimit   CostLimit     `json:"cost_limit" yaml:"cost_limit"`
	Whitelist   ToolWhitelist `json:"whitelist" yaml:"whitelist"`
}

// DefaultPolicy returns a permissive policy with no limits, suitable as a
// workspace default before the user configures anything stricter.
func DefaultPolicy() Policy {
	return Policy{
		Name: "default",
	}
}
