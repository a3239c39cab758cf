package regalloc

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/candicezhang0827/UCLA-CS-132/vapor"
)

func analyzeText(t *testing.T, data string) *Liveness {
	parser := &vapor.Parser{}
	program, err := parser.Parse(strings.NewReader(data))
	assert.Nil(t, err)
	assert.Equal(t, 1, len(program.Functions))
	return Analyze(program.Functions[0])
}

func TestAnalyze_Intervals(t *testing.T) {
	liveness := analyzeText(t, `func f(this n)
	t.0 = Add(n 1)
	t.1 = call :g(t.0)
	t.2 = Add(t.0 t.1)
	ret t.2
`)
	this := liveness.lookUp("this")
	assert.NotNil(t, this)
	assert.Equal(t, 1, this.Start)
	assert.Equal(t, 1, this.End)

	n := liveness.lookUp("n")
	assert.Equal(t, 1, n.Start)
	assert.Equal(t, 2, n.End)
	assert.False(t, n.AfterCall)

	// t.0 is read past the call on line 3, so it crosses the call.
	t0 := liveness.lookUp("t.0")
	assert.Equal(t, 2, t0.Start)
	assert.Equal(t, 4, t0.End)
	assert.True(t, t0.BeforeCall)
	assert.True(t, t0.AfterCall)

	// t.1 is written by the call itself and does not cross it.
	t1 := liveness.lookUp("t.1")
	assert.Equal(t, 3, t1.Start)
	assert.Equal(t, 4, t1.End)
	assert.False(t, t1.AfterCall)

	t2 := liveness.lookUp("t.2")
	assert.Equal(t, 4, t2.Start)
	assert.Equal(t, 5, t2.End)
}

func TestAnalyze_OutCount(t *testing.T) {
	liveness := analyzeText(t, `func f(a)
	t.0 = call :g(a a a a a a)
	t.1 = call :g(a a a a a)
	ret t.0
`)
	// Six arguments leave two beyond the four register slots; the smaller
	// call must not shrink the requirement.
	assert.Equal(t, 2, liveness.OutCount)
}

// A variable written before a loop and used inside it stays live around the
// back edge: the backward goto extends its interval to the branch line.
func TestAnalyze_BackwardBranch(t *testing.T) {
	liveness := analyzeText(t, `func f(n)
	i = 0
	loop:
	t.0 = Add(i 1)
	i = t.0
	goto :loop
	end:
	ret i
`)
	i := liveness.lookUp("i")
	assert.Equal(t, 2, i.Start)
	// Extended at least to the goto on line 6.
	assert.True(t, i.End >= 6)
}

// A call inside the loop makes everything live around the back edge cross a
// call.
func TestAnalyze_CallInLoop(t *testing.T) {
	liveness := analyzeText(t, `func f(n)
	i = 0
	loop:
	t.0 = call :g(i)
	i = Add(i 1)
	goto :loop
	end:
	ret n
`)
	i := liveness.lookUp("i")
	assert.True(t, i.AfterCall)
	n := liveness.lookUp("n")
	// n is read on line 8, past the call on line 4.
	assert.True(t, n.AfterCall)
}

func TestAnalyze_MemoryOperands(t *testing.T) {
	liveness := analyzeText(t, `func f(p q)
	t.0 = [p + 4]
	[q + 8] = t.0
	ret q
`)
	p := liveness.lookUp("p")
	assert.Equal(t, 2, p.End)
	q := liveness.lookUp("q")
	assert.Equal(t, 4, q.End)
	t0 := liveness.lookUp("t.0")
	assert.Equal(t, 2, t0.Start)
	assert.Equal(t, 3, t0.End)
}
