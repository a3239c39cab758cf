package regalloc

import (
	"github.com/candicezhang0827/UCLA-CS-132/vapor"
)

// Liveness analysis over one Vapor function. Every variable gets one
// interval [Start, End] of source line positions; reads and writes only ever
// extend an interval. Branches extend the intervals of variables that are
// live around the edge: a backward branch extends at the branch line every
// variable that existed when the target label was passed, a forward branch
// marks every variable seen so far and extends them when the label
// definition is reached.

type VMVar struct {
	Id    string
	Start int
	End   int
	// BeforeCall is set for every variable already seen when some call is
	// reached.
	BeforeCall bool
	// AfterCall is set when a call line lies strictly inside the interval,
	// so the value must survive a call.
	AfterCall bool
	// beforeLabels are the labels passed while the variable existed.
	beforeLabels map[string]bool
	// afterLabels are forward branch targets recorded while the variable
	// existed, waiting for the label definition.
	afterLabels map[string]bool
}

func (v *VMVar) read(pos int) {
	if pos > v.End {
		v.End = pos
	}
}

type Liveness struct {
	Vars []*VMVar // insertion order
	// OutCount is the largest number of call arguments beyond the four
	// register arguments, the function's out stack requirement.
	OutCount int

	varMap    map[string]*VMVar
	callLines []int
}

func (liveness *Liveness) lookUp(id string) *VMVar {
	return liveness.varMap[id]
}

func (liveness *Liveness) readVariable(id string, pos int) {
	v := liveness.varMap[id]
	if v != nil {
		v.read(pos)
	}
}

func (liveness *Liveness) writeVariable(id string, pos int) {
	v := liveness.varMap[id]
	if v != nil {
		v.read(pos)
		return
	}
	v = &VMVar{
		Id:           id,
		Start:        pos,
		End:          pos,
		beforeLabels: map[string]bool{},
		afterLabels:  map[string]bool{},
	}
	liveness.varMap[id] = v
	liveness.Vars = append(liveness.Vars, v)
}

// Analyze walks the function once in source order.
func Analyze(function *vapor.VFunction) *Liveness {
	liveness := &Liveness{varMap: map[string]*VMVar{}}
	for _, param := range function.Params {
		liveness.writeVariable(param, function.ParamLine)
	}
	pendingLabels := function.Labels
	definedLabels := map[string]int{}
	for _, instr := range function.Body {
		for len(pendingLabels) > 0 && pendingLabels[0].Line < instr.Line {
			liveness.passLabel(pendingLabels[0])
			definedLabels[pendingLabels[0].Ident] = pendingLabels[0].Line
			pendingLabels = pendingLabels[1:]
		}
		liveness.visit(instr, definedLabels)
	}
	liveness.markAfterCall()
	return liveness
}

// passLabel records the label on every variable in scope and resolves the
// forward branches that were waiting for it.
func (liveness *Liveness) passLabel(label *vapor.VCodeLabel) {
	for _, v := range liveness.Vars {
		v.beforeLabels[label.Ident] = true
		if v.afterLabels[label.Ident] {
			v.read(label.Line)
			delete(v.afterLabels, label.Ident)
		}
	}
}

func (liveness *Liveness) branchTo(target string, line int, definedLabels map[string]int) {
	_, backward := definedLabels[target]
	for _, v := range liveness.Vars {
		if backward {
			if v.beforeLabels[target] {
				v.read(line)
			}
		} else {
			v.afterLabels[target] = true
		}
	}
}

func (liveness *Liveness) visit(instr *vapor.VInstr, definedLabels map[string]int) {
	line := instr.Line
	switch instr.TP {
	case vapor.VAssignTP:
		assign := instr.Instr.(*vapor.VAssign)
		if assign.Source.IsVariable() {
			liveness.readVariable(assign.Source.Value, line)
		}
		liveness.writeVariable(assign.Dest.Value, line)
	case vapor.VCallTP:
		call := instr.Instr.(*vapor.VCall)
		for _, arg := range call.Args {
			if arg.IsVariable() {
				liveness.readVariable(arg.Value, line)
			}
		}
		if call.Addr.IsVariable() {
			liveness.readVariable(call.Addr.Value, line)
		}
		if len(call.Args) > 4 && len(call.Args)-4 > liveness.OutCount {
			liveness.OutCount = len(call.Args) - 4
		}
		for _, v := range liveness.Vars {
			v.BeforeCall = true
		}
		liveness.callLines = append(liveness.callLines, line)
		if call.Dest != nil {
			liveness.writeVariable(call.Dest.Value, line)
		}
	case vapor.VBuiltInTP:
		builtin := instr.Instr.(*vapor.VBuiltIn)
		for _, arg := range builtin.Args {
			if arg.IsVariable() {
				liveness.readVariable(arg.Value, line)
			}
		}
		if builtin.Dest != nil {
			liveness.writeVariable(builtin.Dest.Value, line)
		}
	case vapor.VMemWriteTP:
		memWrite := instr.Instr.(*vapor.VMemWrite)
		if memWrite.Source.IsVariable() {
			liveness.readVariable(memWrite.Source.Value, line)
		}
		liveness.readVariable(memWrite.Dest.Base.Value, line)
	case vapor.VMemReadTP:
		memRead := instr.Instr.(*vapor.VMemRead)
		liveness.readVariable(memRead.Source.Base.Value, line)
		liveness.writeVariable(memRead.Dest.Value, line)
	case vapor.VBranchTP:
		branch := instr.Instr.(*vapor.VBranch)
		liveness.branchTo(branch.Target, line, definedLabels)
		if branch.Cond.IsVariable() {
			liveness.readVariable(branch.Cond.Value, line)
		}
	case vapor.VGotoTP:
		liveness.branchTo(instr.Instr.(*vapor.VGoto).Target, line, definedLabels)
	case vapor.VReturnTP:
		ret := instr.Instr.(*vapor.VReturn)
		if ret.Value != nil && ret.Value.IsVariable() {
			liveness.readVariable(ret.Value.Value, line)
		}
	}
}

// markAfterCall flags every interval some call lies strictly inside of: the
// value crosses that call and must not sit in a caller-saved register.
func (liveness *Liveness) markAfterCall() {
	for _, v := range liveness.Vars {
		for _, callLine := range liveness.callLines {
			if v.Start < callLine && callLine < v.End {
				v.AfterCall = true
				break
			}
		}
	}
}
