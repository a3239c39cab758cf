package regalloc

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func allocateText(t *testing.T, data string) (*Liveness, *Allocation) {
	liveness := analyzeText(t, data)
	return liveness, Allocate(liveness)
}

// No two variables with overlapping intervals may share a register.
func assertNoRegisterClash(t *testing.T, liveness *Liveness, allocation *Allocation) {
	for i, v := range liveness.Vars {
		for _, u := range liveness.Vars[i+1:] {
			if allocation.Slots[v.Id] != allocation.Slots[u.Id] {
				continue
			}
			overlap := v.Start <= u.End && u.Start <= v.End
			assert.False(t, overlap, "%s and %s share %s with overlapping ranges",
				v.Id, u.Id, allocation.Slots[v.Id])
		}
	}
}

// Variables that cross a call must not sit in caller-saved registers.
func assertCalleeDiscipline(t *testing.T, liveness *Liveness, allocation *Allocation) {
	for _, v := range liveness.Vars {
		if v.AfterCall && allocation.IsRegister(v.Id) {
			assert.True(t, strings.HasPrefix(allocation.Slots[v.Id], "$s"),
				"%s crosses a call but got %s", v.Id, allocation.Slots[v.Id])
		}
	}
}

func TestAllocate_AcrossCall(t *testing.T) {
	liveness, allocation := allocateText(t, `func f(a b c d e)
	t.0 = call :g(a)
	t.1 = Add(a b)
	t.2 = Add(c d)
	t.3 = Add(e t.0)
	PrintIntS(t.1)
	PrintIntS(t.2)
	PrintIntS(t.3)
	ret 0
`)
	// All five parameters stay live past the call and must land in
	// callee-saved registers.
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		v := liveness.lookUp(id)
		assert.True(t, v.AfterCall, id)
		assert.True(t, strings.HasPrefix(allocation.Slots[id], "$s"), "%s got %s", id, allocation.Slots[id])
	}
	// The call result is born at the call and may take a caller register.
	assert.False(t, liveness.lookUp("t.0").AfterCall)
	assertNoRegisterClash(t, liveness, allocation)
	assertCalleeDiscipline(t, liveness, allocation)
	// One save slot per callee register handed out.
	assert.Equal(t, 5, len(allocation.CalleeSaves))
	assert.Equal(t, 5, allocation.LocalCount)
}

func TestAllocate_SpillsWhenOutOfRegisters(t *testing.T) {
	// 18 variables all live at once: one must spill to the stack.
	var lines []string
	lines = append(lines, "func f()")
	for i := 0; i < 18; i++ {
		lines = append(lines, fmt.Sprintf("\tx%d = %d", i, i))
	}
	for i := 17; i >= 0; i-- {
		lines = append(lines, fmt.Sprintf("\tPrintIntS(x%d)", i))
	}
	lines = append(lines, "\tret")
	liveness, allocation := allocateText(t, strings.Join(lines, "\n")+"\n")

	spilled := 0
	for _, v := range liveness.Vars {
		if !allocation.IsRegister(v.Id) {
			spilled++
			// Slots 0..7 are reserved for the eight callee saves.
			assert.Equal(t, "local[8]", allocation.Slots[v.Id])
		}
	}
	assert.Equal(t, 1, spilled)
	assert.Equal(t, 8, len(allocation.CalleeSaves))
	assert.Equal(t, 9, allocation.LocalCount)
	assertNoRegisterClash(t, liveness, allocation)
}

func TestAllocate_RegistersAreReused(t *testing.T) {
	// Two disjoint intervals can share one register.
	liveness, allocation := allocateText(t, `func f()
	t.0 = Add(1 2)
	PrintIntS(t.0)
	t.1 = Add(3 4)
	PrintIntS(t.1)
	ret
`)
	assert.Equal(t, allocation.Slots["t.0"], allocation.Slots["t.1"])
	assertNoRegisterClash(t, liveness, allocation)
	assert.Equal(t, 0, allocation.LocalCount)
}

func TestAllocate_SpillAtIntervalPrefersFurthestEnd(t *testing.T) {
	// x0 lives longest; when the 18th variable arrives, x0 loses its
	// register and moves to the stack.
	var lines []string
	lines = append(lines, "func f()")
	for i := 0; i < 18; i++ {
		lines = append(lines, fmt.Sprintf("\tx%d = %d", i, i))
	}
	for i := 17; i >= 1; i-- {
		lines = append(lines, fmt.Sprintf("\tPrintIntS(x%d)", i))
	}
	lines = append(lines, "\tPrintIntS(x0)", "\tret")
	_, allocation := allocateText(t, strings.Join(lines, "\n")+"\n")
	assert.Equal(t, "local[8]", allocation.Slots["x0"])
	assert.True(t, allocation.IsRegister("x17"))
}

func TestAllocate_EveryVariableGetsASlot(t *testing.T) {
	liveness, allocation := allocateText(t, `func f(a b)
	t.0 = call :g(a b)
	t.1 = Add(t.0 a)
	ret t.1
`)
	for _, v := range liveness.Vars {
		assert.NotEqual(t, "", allocation.Slots[v.Id], v.Id)
	}
	assertCalleeDiscipline(t, liveness, allocation)
	assertNoRegisterClash(t, liveness, allocation)
}
