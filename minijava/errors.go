package minijava

import "fmt"

// ErrorKind classifies the fatal semantic errors. Every kind aborts the
// current phase, there is no recovery.
type ErrorKind int

const (
	DuplicateClass ErrorKind = iota
	DuplicateField
	DuplicateMethod
	DuplicateParam
	DuplicateLocal
	UnknownType
	UnknownClass
	UnboundIdent
	UnboundMethod
	TypeMismatch
	ArgCountMismatch
	CyclicInheritance
	BadMain
)

var errorKindNames = map[ErrorKind]string{
	DuplicateClass:    "DuplicateClass",
	DuplicateField:    "DuplicateField",
	DuplicateMethod:   "DuplicateMethod",
	DuplicateParam:    "DuplicateParam",
	DuplicateLocal:    "DuplicateLocal",
	UnknownType:       "UnknownType",
	UnknownClass:      "UnknownClass",
	UnboundIdent:      "UnboundIdent",
	UnboundMethod:     "UnboundMethod",
	TypeMismatch:      "TypeMismatch",
	ArgCountMismatch:  "ArgCountMismatch",
	CyclicInheritance: "CyclicInheritance",
	BadMain:           "BadMain",
}

type CheckError struct {
	Kind ErrorKind
	Msg  string
}

func (e *CheckError) Error() string {
	return fmt.Sprintf("%s: %s", errorKindNames[e.Kind], e.Msg)
}

func makeCheckError(kind ErrorKind, format string, msg ...interface{}) error {
	return &CheckError{Kind: kind, Msg: fmt.Sprintf(format, msg...)}
}
