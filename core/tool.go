package core

// PortType is the closed set of primitive type tags a port may declare.
// Any is a wildcard: it is structurally compatible with every other PortType.
type PortType string

const (
	PortTypeAny     PortType = "any"
	PortTypeString  PortType = "string"
	PortTypeNumber  PortType = "number"
	PortTypeBoolean PortType = "boolean"
	PortTypeObject  PortType = "object"
	PortTypeArray   PortType = "array"
	PortTypeFile    PortType = "file"
)

// CompatibleWith reports whether a value produced on a port of type src may
// flow into a port declared with type dst. Any matches everything in either
// position; otherwise equality is structural (the tags must match exactly).
func (src PortType) CompatibleWith(dst PortType) bool {
	if src == PortTypeAny || dst == PortTypeAny {
		return true
	}
	return src == dst
}

// Port describes one named, typed input or output slot on a node.
type Port struct {
	Name     string   `json:"name" yaml:"name"`
	Type     PortType `json:"type" yaml:"type"`
	Required bool     `json:"required,omitempty" yaml:"required,omitempty"`
}

// SideEffectTag classifies what a tool does to its environment, driving both
// validator insertion and policy evaluation.
type SideEffectTag string

const (
	SideEffectPure         SideEffectTag = "pure"
	SideEffectReadsState   SideEffectTag = "reads_state"
	SideEffectMutatesState SideEffectTag = "mutates_state"
	SideEffectExternalCall SideEffectTag = "external_call"
)

// RuntimeVariant selects which Execution Gateway backend dispatches a tool call.
type RuntimeVariant string

const (
	RuntimeNative    RuntimeVariant = "native"
	RuntimeProcess   RuntimeVariant = "process"
	RuntimePython    RuntimeVariant = "python"
	RuntimeContainer RuntimeVariant = "container"
	RuntimeSandbox   RuntimeVariant = "sandbox"
	RuntimeRemote    RuntimeVariant = "remote"
)

// RuntimeSpec describes how the gateway should invoke a tool.
type RuntimeSpec struct {
	Variant RuntimeVariant `json:"variant" yaml:"variant"`

	// Process / Python
	Command string   `json:"command,omitempty" yaml:"command,omitempty"`
	Args    []string `json:"args,omitempty" yaml:"args,omitempty"`

	// Container
	Image string `json:"image,omitempty" yaml:"image,omitempty"`

	// Sandbox
	ModulePath string `json:"module_path,omitempty" yaml:"module_path,omitempty"`
	EntryPoint string `json:"entry_point,omitempty" yaml:"entry_point,omitempty"`

	// Remote
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`

	// Native
	HandlerID string `json:"handler_id,omitempty" yaml:"handler_id,omitempty"`

	TimeoutMS int64 `json:"timeout_ms,omitempty" yaml:"timeout_ms,omitempty"`
}

// RetryPolicy governs attempts made by the runner against the gateway for a
// single node. Delay(n) = min(backoff_ms * multiplier^n, max_backoff_ms).
type RetryPolicy struct {
	MaxRetries        int     `json:"max_retries" yaml:"max_retries"`
	BackoffMS         int64   `json:"backoff_ms" yaml:"backoff_ms"`
	BackoffMultiplier float64 `json:"backoff_multiplier" yaml:"backoff_multiplier"`
	MaxBackoffMS      int64   `json:"max_backoff_ms" yaml:"max_backoff_ms"`
}

// DefaultRetryPolicy returns the default backoff schedule: 3 retries, 1s base, 2x multiplier, 30s cap.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:        3,
		BackoffMS:         1000,
		BackoffMultiplier: 2.0,
		MaxBackoffMS:      30000,
	}
}

// ToolInterface is a registry entry describing one callable tool version.
type ToolInterface struct {
	Ref         string        `json:"ref" yaml:"ref"` // "pack/tool@semver"
	Version     string        `json:"version" yaml:"version"`
	Inputs      []Port        `json:"inputs" yaml:"inputs"`
	Outputs     []Port        `json:"outputs" yaml:"outputs"`
	Permissions []string      `json:"permissions,omitempty" yaml:"permissions,omitempty"`
	Capabilities []string     `json:"capabilities,omitempty" yaml:"capabilities,omitempty"`
	SideEffect  SideEffectTag `json:"side_effect" yaml:"side_effect"`
	CostHint    float64       `json:"cost_hint,omitempty" yaml:"cost_hint,omitempty"`
	Runtime     RuntimeSpec   `json:"runtime" yaml:"runtime"`
}

// InputPort resolves a named input port, if declared.
func (t ToolInterface) InputPort(name string) (Port, bool) {
	return findPort(t.Inputs, name)
}

// OutputPort resolves a named output port, if declared.
func (t ToolInterface) OutputPort(name string) (Port, bool) {
	return findPort(t.Outputs, name)
}

func findPort(ports []Port, name string) (Port, bool) {
	for _, p := range ports {
		if p.Name == name {
			return p, true
		}
	}
	return Port{}, false
}
