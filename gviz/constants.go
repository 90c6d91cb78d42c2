package gviz

// TypeTag is the column type declared by the query service.
type TypeTag string

// Column types as they appear in the response envelope.
const (
	TypeString    TypeTag = "string"
	TypeNumber    TypeTag = "number"
	TypeBoolean   TypeTag = "boolean"
	TypeDate      TypeTag = "date"
	TypeDateTime  TypeTag = "datetime"
	TypeTimeOfDay TypeTag = "timeofday"
	TypeUnknown   TypeTag = ""
)

// Status is the envelope status reported by the query service.
type Status string

// Envelope statuses.
const (
	// StatusOK means the query executed and a table is present.
	StatusOK Status = "ok"

	// StatusWarning means a table is present but the service attached
	// warnings (e.g. data truncated). Callers should still consume the table.
	StatusWarning Status = "warning"

	// StatusError means the query failed; Errors carries the reasons and no
	// table is present.
	StatusError Status = "error"
)
