package vapor

import (
	"github.com/candicezhang0827/UCLA-CS-132/minijava"
)

// Class layout: object size, field offsets and the vtable of every class,
// derived from the frozen context table. Word 0 of every object holds the
// vtable pointer, fields follow in base-to-derived declaration order.

type VMethodRef struct {
	Name          string
	DefiningClass string
}

type VClass struct {
	Name string
	// Fields of the class and all ancestors in base-to-derived declaration
	// order. Shadowing is rejected by the checker so each name appears once.
	Fields []string
	// The vtable: overrides replace the base entry in place, keeping the
	// slot index.
	Methods []*VMethodRef
}

func (class *VClass) Size() int {
	return 4 + 4*len(class.Fields)
}

// FieldOffset returns the byte offset of a field, -1 when the name is not a
// field of the class.
func (class *VClass) FieldOffset(name string) int {
	for i, field := range class.Fields {
		if field == name {
			return 4 + 4*i
		}
	}
	return -1
}

// MethodSlot returns the byte offset of a method's vtable slot, -1 when the
// class has no such method.
func (class *VClass) MethodSlot(name string) int {
	for i, method := range class.Methods {
		if method.Name == name {
			return 4 * i
		}
	}
	return -1
}

type Layouts struct {
	Classes map[string]*VClass
	// Order is a topological order of the inheritance forest, parents first,
	// declaration order otherwise.
	Order []string
}

func (layouts *Layouts) LookUp(className string) *VClass {
	return layouts.Classes[className]
}

// ComputeLayouts finalizes the layout of every declared class (the main
// class has neither fields nor dispatched methods and gets none).
func ComputeLayouts(table *minijava.ContextTable) *Layouts {
	layouts := &Layouts{Classes: map[string]*VClass{}}
	children := map[string][]string{}
	var roots []string
	for _, className := range table.ClassDecl {
		class := table.Classes[className]
		if class.ParentName == "" {
			roots = append(roots, className)
		} else {
			children[class.ParentName] = append(children[class.ParentName], className)
		}
	}
	for _, root := range roots {
		layouts.build(table, root, children)
	}
	return layouts
}

func (layouts *Layouts) build(table *minijava.ContextTable, className string, children map[string][]string) {
	class := table.Classes[className]
	layout := &VClass{Name: className}
	parent := layouts.Classes[class.ParentName]
	if parent != nil {
		layout.Fields = append(layout.Fields, parent.Fields...)
		for _, method := range parent.Methods {
			layout.Methods = append(layout.Methods, &VMethodRef{Name: method.Name, DefiningClass: method.DefiningClass})
		}
	}
	for _, field := range class.Fields {
		layout.Fields = append(layout.Fields, field.Name)
	}
	for _, method := range class.Methods {
		overridden := false
		for _, slot := range layout.Methods {
			if slot.Name == method.Name {
				slot.DefiningClass = className
				overridden = true
				break
			}
		}
		if !overridden {
			layout.Methods = append(layout.Methods, &VMethodRef{Name: method.Name, DefiningClass: className})
		}
	}
	layouts.Classes[className] = layout
	layouts.Order = append(layouts.Order, className)
	for _, child := range children[className] {
		layouts.build(table, child, children)
	}
}
