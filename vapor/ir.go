package vapor

// The per-function Vapor form used by the register allocator. Every
// instruction carries the source line it was parsed from, which is its
// program point for liveness.

type VOperandType int

const (
	VarOperand VOperandType = iota
	IntOperand
	LabelOperand // :name address literal
	StringOperand
)

type VOperand struct {
	TP    VOperandType
	Value string
}

func (op VOperand) IsVariable() bool {
	return op.TP == VarOperand
}

func (op VOperand) String() string {
	if op.TP == StringOperand {
		return "\"" + op.Value + "\""
	}
	return op.Value
}

// VMemRef is a [base + offset] memory reference; base is always a variable.
type VMemRef struct {
	Base   VOperand
	Offset int
}

type VInstrType int

const (
	VAssignTP VInstrType = iota
	VCallTP
	VBuiltInTP
	VMemWriteTP
	VMemReadTP
	VBranchTP
	VGotoTP
	VReturnTP
)

type VInstr struct {
	TP    VInstrType
	Instr interface{}
	Line  int
}

type VAssign struct {
	Dest   VOperand
	Source VOperand
}

type VCall struct {
	Dest *VOperand // nil when the result is discarded
	Addr VOperand  // variable or :label
	Args []VOperand
}

type VBuiltIn struct {
	Dest *VOperand // nil for effect-only builtins like PrintIntS and Error
	Op   string
	Args []VOperand
}

type VMemWrite struct {
	Dest   VMemRef
	Source VOperand
}

type VMemRead struct {
	Dest   VOperand
	Source VMemRef
}

type VBranch struct {
	Positive bool // if vs if0
	Cond     VOperand
	Target   string // label name without the leading colon
}

type VGoto struct {
	Target string
}

type VReturn struct {
	Value *VOperand
}

type VCodeLabel struct {
	Ident string
	Line  int
}

type VFunction struct {
	Name      string
	Params    []string
	ParamLine int // source line of the function header
	Body      []*VInstr
	Labels    []*VCodeLabel
}

// VDataSegment is a const segment, e.g. a vtable: the segment name and its
// :label entries in slot order.
type VDataSegment struct {
	Name   string
	Values []string
}

type Program struct {
	DataSegments []*VDataSegment
	Functions    []*VFunction
}
