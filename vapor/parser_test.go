package vapor

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParser_Parse(t *testing.T) {
	parser := &Parser{}
	program, err := parser.Parse(strings.NewReader(`const vmt_A
  :A.run

func Main()
	t.0 = HeapAllocZ(4)
	[t.0] = :vmt_A
	if t.0 goto :null1
		Error("null pointer")
	null1:
	t.1 = [t.0]
	t.2 = [t.1 + 0]
	t.3 = call t.2(t.0)
	PrintIntS(t.3)
	ret
`))
	assert.Nil(t, err)
	assert.NotNil(t, program)

	assert.Equal(t, 1, len(program.DataSegments))
	assert.Equal(t, "vmt_A", program.DataSegments[0].Name)
	assert.Equal(t, []string{":A.run"}, program.DataSegments[0].Values)

	assert.Equal(t, 1, len(program.Functions))
	function := program.Functions[0]
	assert.Equal(t, "Main", function.Name)
	assert.Equal(t, 0, len(function.Params))
	assert.Equal(t, 4, function.ParamLine)

	assert.Equal(t, 1, len(function.Labels))
	assert.Equal(t, "null1", function.Labels[0].Ident)
	assert.Equal(t, 9, function.Labels[0].Line)

	expected := []VInstrType{
		VBuiltInTP, VMemWriteTP, VBranchTP, VBuiltInTP,
		VMemReadTP, VMemReadTP, VCallTP, VBuiltInTP, VReturnTP,
	}
	assert.Equal(t, len(expected), len(function.Body))
	for i, instr := range function.Body {
		assert.Equal(t, expected[i], instr.TP)
	}

	alloc := function.Body[0].Instr.(*VBuiltIn)
	assert.Equal(t, "HeapAllocZ", alloc.Op)
	assert.NotNil(t, alloc.Dest)
	assert.Equal(t, "t.0", alloc.Dest.Value)
	assert.Equal(t, VOperand{TP: IntOperand, Value: "4"}, alloc.Args[0])

	memWrite := function.Body[1].Instr.(*VMemWrite)
	assert.Equal(t, "t.0", memWrite.Dest.Base.Value)
	assert.Equal(t, 0, memWrite.Dest.Offset)
	assert.Equal(t, VOperand{TP: LabelOperand, Value: ":vmt_A"}, memWrite.Source)

	branch := function.Body[2].Instr.(*VBranch)
	assert.True(t, branch.Positive)
	assert.Equal(t, "null1", branch.Target)
	assert.Equal(t, "t.0", branch.Cond.Value)

	errorCall := function.Body[3].Instr.(*VBuiltIn)
	assert.Nil(t, errorCall.Dest)
	assert.Equal(t, "Error", errorCall.Op)
	assert.Equal(t, VOperand{TP: StringOperand, Value: "null pointer"}, errorCall.Args[0])

	memRead := function.Body[5].Instr.(*VMemRead)
	assert.Equal(t, "t.1", memRead.Source.Base.Value)
	assert.Equal(t, 0, memRead.Source.Offset)

	call := function.Body[6].Instr.(*VCall)
	assert.Equal(t, "t.3", call.Dest.Value)
	assert.Equal(t, VOperand{TP: VarOperand, Value: "t.2"}, call.Addr)
	assert.Equal(t, 1, len(call.Args))

	ret := function.Body[8].Instr.(*VReturn)
	assert.Nil(t, ret.Value)
}

func TestParser_Params(t *testing.T) {
	parser := &Parser{}
	program, err := parser.Parse(strings.NewReader(`func F.fac(this n)
	t.0 = LtS(n 1)
	if0 t.0 goto :if1_else
		goto :end
	if1_else:
	end:
	ret n
`))
	assert.Nil(t, err)
	function := program.Functions[0]
	assert.Equal(t, []string{"this", "n"}, function.Params)
	assert.Equal(t, 2, len(function.Labels))
	branch := function.Body[1].Instr.(*VBranch)
	assert.False(t, branch.Positive)
	assert.Equal(t, "if1_else", branch.Target)
	ret := function.Body[3].Instr.(*VReturn)
	assert.NotNil(t, ret.Value)
	assert.Equal(t, "n", ret.Value.Value)
}

func TestParser_MemRefSpacing(t *testing.T) {
	// Offsets are accepted with and without spaces around the plus.
	parser := &Parser{}
	program, err := parser.Parse(strings.NewReader("func f(a)\n\tt.0 = [a+8]\n\t[a + 12] = t.0\n\tret t.0\n"))
	assert.Nil(t, err)
	memRead := program.Functions[0].Body[0].Instr.(*VMemRead)
	assert.Equal(t, 8, memRead.Source.Offset)
	memWrite := program.Functions[0].Body[1].Instr.(*VMemWrite)
	assert.Equal(t, 12, memWrite.Dest.Offset)
}

func TestParser_Errors(t *testing.T) {
	testDatas := []struct {
		data      string
		expectErr bool
	}{
		{data: "func f(a)\n\tret a\n", expectErr: false},
		{data: "\tt.0 = 1\n", expectErr: true},
		{data: "func f(a)\n\tgoto end\n", expectErr: true},
		{data: "func f(a)\n\t[3] = a\n\tret a\n", expectErr: true},
		{data: "func f(a)\n\t5 = a\n\tret a\n", expectErr: true},
	}
	for _, testData := range testDatas {
		parser := &Parser{}
		_, err := parser.Parse(strings.NewReader(testData.data))
		if testData.expectErr {
			assert.NotNil(t, err, testData.data)
		} else {
			assert.Nil(t, err, testData.data)
		}
	}
}
