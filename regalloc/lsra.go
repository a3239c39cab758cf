package regalloc

import (
	"fmt"
	"sort"
	"strings"
)

// The linear scan register allocation algorithm as given in Section 4.1,
// Figure 1 of Linear Scan Register Allocation by Massimiliano Poletto and
// Vivek Sarkar, over 8 callee-saved ($s0..$s7) and 9 caller-saved ($t0..$t8)
// registers. A variable that must survive a call only ever gets a
// callee-saved register or a stack slot.

const totalRegisters = 17

// CalleeSave records a callee-saved register handed out by the allocator and
// the local slot the prologue saves it to.
type CalleeSave struct {
	Register string
	Slot     int
}

type Allocation struct {
	// Slots maps every variable to a register name or a local[i] stack slot.
	Slots       map[string]string
	LocalCount  int
	CalleeSaves []CalleeSave
}

func (allocation *Allocation) IsRegister(id string) bool {
	return strings.HasPrefix(allocation.Slots[id], "$")
}

type allocator struct {
	calleeRegisters []string
	callerRegisters []string
	freeRegisters   []string
	active          []*VMVar
	registerMap     map[*VMVar]string
	locations       map[*VMVar]string
	localCount      int
	calleeSaves     []CalleeSave
}

func initRegisters(kind string, amount int) []string {
	registers := make([]string, 0, amount+1)
	for i := 0; i <= amount; i++ {
		registers = append(registers, fmt.Sprintf("$%s%d", kind, i))
	}
	return registers
}

// Allocate assigns every interval of the analysis a register or a stack
// slot. It always succeeds: spilling is unbounded.
func Allocate(liveness *Liveness) *Allocation {
	a := &allocator{
		calleeRegisters: initRegisters("s", 7),
		callerRegisters: initRegisters("t", 8),
		registerMap:     map[*VMVar]string{},
		locations:       map[*VMVar]string{},
	}
	live := make([]*VMVar, len(liveness.Vars))
	copy(live, liveness.Vars)
	sort.SliceStable(live, func(i, j int) bool { return live[i].Start < live[j].Start })
	for _, v := range live {
		a.expireOldIntervals(v)
		if len(a.active) == totalRegisters || (v.AfterCall && !a.hasCalleeAvailable()) {
			a.spillAtInterval(v)
		} else {
			a.registerMap[v] = a.getFreeRegister(v.AfterCall)
			a.active = append(a.active, v)
			a.sortActiveByEnd()
		}
	}
	allocation := &Allocation{
		Slots:       map[string]string{},
		LocalCount:  a.localCount,
		CalleeSaves: a.calleeSaves,
	}
	for v, register := range a.registerMap {
		allocation.Slots[v.Id] = register
	}
	for v, location := range a.locations {
		allocation.Slots[v.Id] = location
	}
	return allocation
}

func (a *allocator) sortActiveByEnd() {
	sort.SliceStable(a.active, func(i, j int) bool { return a.active[i].End < a.active[j].End })
}

func (a *allocator) expireOldIntervals(in *VMVar) {
	a.sortActiveByEnd()
	remaining := a.active[:0]
	for i, v := range a.active {
		if v.End >= in.Start {
			remaining = append(remaining, a.active[i:]...)
			break
		}
		a.freeRegisters = append(a.freeRegisters, a.registerMap[v])
	}
	a.active = remaining
}

func (a *allocator) spillAtInterval(in *VMVar) {
	if len(a.active) == 0 {
		a.locations[in] = a.newStackLocation()
		return
	}
	spill := a.active[len(a.active)-1]
	// A variable crossing a call may only take over a callee-saved register.
	if spill.End > in.End && (!in.AfterCall || isCalleeRegister(a.registerMap[spill])) {
		a.registerMap[in] = a.registerMap[spill]
		delete(a.registerMap, spill)
		a.locations[spill] = a.newStackLocation()
		a.active[len(a.active)-1] = in
		a.sortActiveByEnd()
	} else {
		a.locations[in] = a.newStackLocation()
	}
}

func (a *allocator) newStackLocation() string {
	location := fmt.Sprintf("local[%d]", a.localCount)
	a.localCount++
	return location
}

func isCalleeRegister(register string) bool {
	return strings.HasPrefix(register, "$s")
}

func (a *allocator) hasCalleeAvailable() bool {
	if len(a.calleeRegisters) > 0 {
		return true
	}
	for _, register := range a.freeRegisters {
		if isCalleeRegister(register) {
			return true
		}
	}
	return false
}

// getCalleeRegister hands out a fresh callee-saved register, reserving the
// local slot the prologue will save it to.
func (a *allocator) getCalleeRegister() string {
	register := a.calleeRegisters[0]
	a.calleeRegisters = a.calleeRegisters[1:]
	a.calleeSaves = append(a.calleeSaves, CalleeSave{Register: register, Slot: a.localCount})
	a.localCount++
	return register
}

func (a *allocator) getFreeRegister(afterCall bool) string {
	if afterCall {
		// Only a callee-saved register keeps the value across calls.
		for i, register := range a.freeRegisters {
			if isCalleeRegister(register) {
				a.freeRegisters = append(a.freeRegisters[:i], a.freeRegisters[i+1:]...)
				return register
			}
		}
		return a.getCalleeRegister()
	}
	if len(a.freeRegisters) > 0 {
		register := a.freeRegisters[0]
		a.freeRegisters = a.freeRegisters[1:]
		return register
	}
	if len(a.callerRegisters) > 0 {
		register := a.callerRegisters[0]
		a.callerRegisters = a.callerRegisters[1:]
		return register
	}
	return a.getCalleeRegister()
}
