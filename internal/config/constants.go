package config

// ConfigFileNames are searched, in order, when locating a project config.
var ConfigFileNames = []string{"tyinfer.yaml", "tyinfer.yml"}

// PassCeiling is the hard upper bound on InferLocal passes.
const PassCeiling = 10

// Built-in concrete type names
const (
	IntTypeName   = "Int"
	FloatTypeName = "Float"
	BoolTypeName  = "Bool"
	TextTypeName  = "Text"
	BytesTypeName = "Bytes"
	NoneTypeName  = "None"
)

// Built-in constructor names
const (
	ListTypeName     = "List"
	DictTypeName     = "Dict"
	SetTypeName      = "Set"
	TupleTypeName    = "Tuple"
	OptionalTypeName = "Optional"
	FuncTypeName     = "Func"
)

// Protocol method names used by the collector for iteration, indexing and membership.
const (
	IterMethodName     = "__iter__"
	GetItemMethodName  = "__getitem__"
	ContainsMethodName = "__contains__"
	InitMethodName     = "__init__"
	SelfParamName      = "self"
)

// Environment variable overrides
const (
	EnvMaxPasses     = "TYINFER_MAX_PASSES"
	EnvParallel      = "TYINFER_PARALLEL"
	EnvTargetVersion = "TYINFER_TARGET_VERSION"
	EnvTelemetryDSN  = "TYINFER_TELEMETRY_DSN"
)
