package regalloc

import (
	"errors"
	"fmt"
	"strings"

	"github.com/candicezhang0827/UCLA-CS-132/vapor"
)

// VaporM emission: every Vapor function is rewritten with its variables
// substituted by the allocation. Arguments travel in $a0..$a3 and out[i],
// results in $v0, and $v0/$v1 double as the scratch registers that
// materialize memory-backed operands, per the MIPS conventions VaporM
// mirrors.

type emitter struct {
	lines      []string
	allocation *Allocation
}

// EmitProgram allocates registers for every function of the program and
// prints the VaporM form. Const segments pass through unchanged.
func EmitProgram(program *vapor.Program) (string, error) {
	e := &emitter{}
	for _, segment := range program.DataSegments {
		e.emit("const " + segment.Name)
		for _, value := range segment.Values {
			e.emit("  " + value)
		}
		e.emit("")
	}
	for i, function := range program.Functions {
		if i > 0 {
			e.emit("")
		}
		err := e.emitFunction(function)
		if err != nil {
			return "", err
		}
	}
	return strings.Join(e.lines, "\n") + "\n", nil
}

func (e *emitter) emitFunction(function *vapor.VFunction) error {
	liveness := Analyze(function)
	e.allocation = Allocate(liveness)
	in := 0
	if len(function.Params) > 4 {
		in = len(function.Params) - 4
	}
	e.emit(fmt.Sprintf("func %s [in %d, out %d, local %d]",
		function.Name, in, liveness.OutCount, e.allocation.LocalCount))
	for _, save := range e.allocation.CalleeSaves {
		e.emit(fmt.Sprintf("  local[%d] = %s", save.Slot, save.Register))
	}
	err := e.emitParamMoves(function)
	if err != nil {
		return err
	}
	pendingLabels := function.Labels
	for _, instr := range function.Body {
		for len(pendingLabels) > 0 && pendingLabels[0].Line < instr.Line {
			e.emit(pendingLabels[0].Ident + ":")
			pendingLabels = pendingLabels[1:]
		}
		err = e.emitInstr(instr)
		if err != nil {
			return err
		}
	}
	for _, label := range pendingLabels {
		e.emit(label.Ident + ":")
	}
	return nil
}

// The first four parameters arrive in $a0..$a3, the rest in the caller's out
// stack, visible here as in[i]. A parameter without an allocation is never
// used and needs no move.
func (e *emitter) emitParamMoves(function *vapor.VFunction) error {
	for i, param := range function.Params {
		slot, allocated := e.allocation.Slots[param]
		if !allocated {
			continue
		}
		var source string
		if i < 4 {
			source = fmt.Sprintf("$a%d", i)
		} else {
			source = fmt.Sprintf("in[%d]", i-4)
		}
		if isMemorySlot(slot) && i >= 4 {
			e.emit("  $v0 = " + source)
			source = "$v0"
		}
		e.emit("  " + slot + " = " + source)
	}
	return nil
}

func isMemorySlot(slot string) bool {
	return !strings.HasPrefix(slot, "$")
}

// slotOf resolves a variable to its allocation.
func (e *emitter) slotOf(id string) (string, error) {
	slot, allocated := e.allocation.Slots[id]
	if !allocated {
		return "", errors.New("no allocation for variable " + id)
	}
	return slot, nil
}

// operand rewrites a Vapor operand; a memory-backed variable is loaded into
// the given scratch register first.
func (e *emitter) operand(op vapor.VOperand, scratch string) (string, error) {
	if !op.IsVariable() {
		return op.String(), nil
	}
	slot, err := e.slotOf(op.Value)
	if err != nil {
		return "", err
	}
	if isMemorySlot(slot) {
		e.emit("  " + scratch + " = " + slot)
		return scratch, nil
	}
	return slot, nil
}

// register rewrites an operand into a plain register, loading immediates and
// address literals into the scratch register as well.
func (e *emitter) register(op vapor.VOperand, scratch string) (string, error) {
	text, err := e.operand(op, scratch)
	if err != nil {
		return "", err
	}
	if strings.HasPrefix(text, "$") {
		return text, nil
	}
	e.emit("  " + scratch + " = " + text)
	return scratch, nil
}

// store writes a value into a destination slot, routing through $v0 when the
// destination is memory-backed and the value is not a register.
func (e *emitter) store(slot string, value string) {
	if isMemorySlot(slot) && !strings.HasPrefix(value, "$") {
		e.emit("  $v0 = " + value)
		value = "$v0"
	}
	e.emit("  " + slot + " = " + value)
}

func (e *emitter) emitInstr(instr *vapor.VInstr) error {
	switch instr.TP {
	case vapor.VAssignTP:
		return e.emitAssign(instr.Instr.(*vapor.VAssign))
	case vapor.VCallTP:
		return e.emitCall(instr.Instr.(*vapor.VCall))
	case vapor.VBuiltInTP:
		return e.emitBuiltIn(instr.Instr.(*vapor.VBuiltIn))
	case vapor.VMemWriteTP:
		return e.emitMemWrite(instr.Instr.(*vapor.VMemWrite))
	case vapor.VMemReadTP:
		return e.emitMemRead(instr.Instr.(*vapor.VMemRead))
	case vapor.VBranchTP:
		return e.emitBranch(instr.Instr.(*vapor.VBranch))
	case vapor.VGotoTP:
		e.emit("  goto :" + instr.Instr.(*vapor.VGoto).Target)
		return nil
	case vapor.VReturnTP:
		return e.emitReturn(instr.Instr.(*vapor.VReturn))
	}
	return nil
}

func (e *emitter) emitAssign(assign *vapor.VAssign) error {
	slot, err := e.slotOf(assign.Dest.Value)
	if err != nil {
		return err
	}
	source, err := e.operand(assign.Source, "$v0")
	if err != nil {
		return err
	}
	e.store(slot, source)
	return nil
}

func (e *emitter) emitCall(call *vapor.VCall) error {
	for i, arg := range call.Args {
		value, err := e.operand(arg, "$v0")
		if err != nil {
			return err
		}
		if i < 4 {
			e.emit(fmt.Sprintf("  $a%d = %s", i, value))
		} else {
			e.store(fmt.Sprintf("out[%d]", i-4), value)
		}
	}
	address, err := e.operand(call.Addr, "$v0")
	if err != nil {
		return err
	}
	e.emit("  call " + address)
	if call.Dest != nil {
		slot, err := e.slotOf(call.Dest.Value)
		if err != nil {
			return err
		}
		e.store(slot, "$v0")
	}
	return nil
}

func (e *emitter) emitBuiltIn(builtin *vapor.VBuiltIn) error {
	scratches := []string{"$v0", "$v1"}
	arguments := make([]string, 0, len(builtin.Args))
	for i, arg := range builtin.Args {
		scratch := scratches[i%len(scratches)]
		value, err := e.operand(arg, scratch)
		if err != nil {
			return err
		}
		arguments = append(arguments, value)
	}
	text := builtin.Op + "(" + strings.Join(arguments, " ") + ")"
	if builtin.Dest == nil {
		e.emit("  " + text)
		return nil
	}
	slot, err := e.slotOf(builtin.Dest.Value)
	if err != nil {
		return err
	}
	if isMemorySlot(slot) {
		e.emit("  $v0 = " + text)
		e.emit("  " + slot + " = $v0")
		return nil
	}
	e.emit("  " + slot + " = " + text)
	return nil
}

func (e *emitter) emitMemWrite(memWrite *vapor.VMemWrite) error {
	base, err := e.register(memWrite.Dest.Base, "$v0")
	if err != nil {
		return err
	}
	source, err := e.operand(memWrite.Source, "$v1")
	if err != nil {
		return err
	}
	e.emit("  " + memRefText(base, memWrite.Dest.Offset) + " = " + source)
	return nil
}

func (e *emitter) emitMemRead(memRead *vapor.VMemRead) error {
	base, err := e.register(memRead.Source.Base, "$v0")
	if err != nil {
		return err
	}
	slot, err := e.slotOf(memRead.Dest.Value)
	if err != nil {
		return err
	}
	if isMemorySlot(slot) {
		e.emit("  $v1 = " + memRefText(base, memRead.Source.Offset))
		e.emit("  " + slot + " = $v1")
		return nil
	}
	e.emit("  " + slot + " = " + memRefText(base, memRead.Source.Offset))
	return nil
}

func memRefText(base string, offset int) string {
	if offset == 0 {
		return "[" + base + "]"
	}
	return fmt.Sprintf("[%s + %d]", base, offset)
}

func (e *emitter) emitBranch(branch *vapor.VBranch) error {
	cond, err := e.register(branch.Cond, "$v0")
	if err != nil {
		return err
	}
	mnemonic := "if0"
	if branch.Positive {
		mnemonic = "if"
	}
	e.emit("  " + mnemonic + " " + cond + " goto :" + branch.Target)
	return nil
}

func (e *emitter) emitReturn(ret *vapor.VReturn) error {
	if ret.Value != nil {
		value, err := e.operand(*ret.Value, "$v0")
		if err != nil {
			return err
		}
		if value != "$v0" {
			e.emit("  $v0 = " + value)
		}
	}
	for _, save := range e.allocation.CalleeSaves {
		e.emit(fmt.Sprintf("  %s = local[%d]", save.Register, save.Slot))
	}
	e.emit("  ret")
	return nil
}

func (e *emitter) emit(line string) {
	e.lines = append(e.lines, line)
}
