package regalloc

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/candicezhang0827/UCLA-CS-132/vapor"
)

func emitText(t *testing.T, data string) string {
	parser := &vapor.Parser{}
	program, err := parser.Parse(strings.NewReader(data))
	assert.Nil(t, err)
	text, err := EmitProgram(program)
	assert.Nil(t, err)
	return text
}

func TestEmitProgram_Simple(t *testing.T) {
	text := emitText(t, `func Main()
	t.0 = HeapAllocZ(4)
	[t.0] = :vmt_A
	t.1 = [t.0]
	PrintIntS(t.1)
	ret
`)
	assert.Contains(t, text, "func Main [in 0, out 0, local 0]")
	assert.Contains(t, text, "HeapAllocZ(4)")
	assert.Contains(t, text, "= :vmt_A")
	assert.Contains(t, text, "PrintIntS(")
	assert.Contains(t, text, "  ret")
}

func TestEmitProgram_CalleeSaves(t *testing.T) {
	text := emitText(t, `func f(n)
	t.0 = Add(n 0)
	t.1 = call :g(n)
	t.2 = Add(t.0 t.1)
	ret t.2
`)
	// t.0 crosses the call: the function needs one callee-saved register,
	// saved in the prologue and restored before ret.
	assert.Contains(t, text, "func f [in 0, out 0, local 1]")
	assert.Contains(t, text, "  local[0] = $s0")
	assert.Contains(t, text, "  $s0 = local[0]")
	// The argument goes to $a0, the result comes back in $v0.
	assert.Contains(t, text, "  $a0 = ")
	assert.Contains(t, text, "  call :g")
	assert.Contains(t, text, " = $v0")
	assert.Contains(t, text, "  $v0 = ")
}

func TestEmitProgram_ParamMoves(t *testing.T) {
	text := emitText(t, `func f(a b c d e f)
	t.0 = Add(e f)
	t.1 = Add(a t.0)
	ret t.1
`)
	// Two parameters beyond the register four arrive on the in stack.
	assert.Contains(t, text, "func f [in 2, out 0, local 0]")
	assert.Contains(t, text, "= $a0")
	assert.Contains(t, text, "= in[0]")
	assert.Contains(t, text, "= in[1]")
}

func TestEmitProgram_OutArguments(t *testing.T) {
	text := emitText(t, `func f(a)
	t.0 = call :g(a a a a a 7)
	ret t.0
`)
	assert.Contains(t, text, "func f [in 0, out 2, local 0]")
	assert.Contains(t, text, "  $a0 = ")
	assert.Contains(t, text, "  $a3 = ")
	assert.Contains(t, text, "  out[0] = ")
	// The immediate is staged through the scratch register.
	assert.Contains(t, text, "  $v0 = 7")
	assert.Contains(t, text, "  out[1] = $v0")
}

func TestEmitProgram_LabelsAndBranches(t *testing.T) {
	text := emitText(t, `func f(n)
	while1_top:
	t.0 = LtS(n 10)
	if0 t.0 goto :while1_end
		goto :while1_top
	while1_end:
	ret n
`)
	assert.Contains(t, text, "while1_top:")
	assert.Contains(t, text, "while1_end:")
	assert.Contains(t, text, "goto :while1_top")
	assert.Contains(t, text, " goto :while1_end")
	// The branch condition sits in a register.
	assert.Contains(t, text, "  if0 $t")
}

func TestEmitProgram_ConstSegmentsPassThrough(t *testing.T) {
	text := emitText(t, `const vmt_A
  :A.f

func A.f(this)
	ret 1
`)
	assert.Contains(t, text, "const vmt_A")
	assert.Contains(t, text, "  :A.f")
	// The return value travels through $v0.
	assert.Contains(t, text, "  $v0 = 1")
}

func TestEmitProgram_SpilledOperands(t *testing.T) {
	// 18 overlapping variables: the spilled one is read back through a
	// scratch register.
	var lines []string
	lines = append(lines, "func f()")
	for i := 0; i < 18; i++ {
		lines = append(lines, "\tx"+string(rune('a'+i))+" = 1")
	}
	for i := 17; i >= 0; i-- {
		lines = append(lines, "\tPrintIntS(x"+string(rune('a'+i))+")")
	}
	lines = append(lines, "\tret")
	text := emitText(t, strings.Join(lines, "\n")+"\n")
	assert.Contains(t, text, "local 9")
	// The spill slot is written and later loaded into the scratch register.
	assert.Contains(t, text, "  local[8] = ")
	assert.Contains(t, text, "  $v0 = local[8]")
	assert.Contains(t, text, "PrintIntS($v0)")
}
