package minijava

// The context table is the symbol table of the program: one MJClass per
// declared class plus the distinguished main class. Classes reference their
// parent by name, so a forward reference is closed by finalizing the
// placeholder entry in place once the real declaration arrives; children
// resolve through the table and never hold stale references.

type MJVar struct {
	Name string
	TP   MJType
}

type MJMethod struct {
	OwnerClass string
	Name       string
	Params     []*MJVar
	Locals     []*MJVar
	ReturnTP   MJType
}

func (method *MJMethod) LookUpParam(name string) *MJVar {
	for _, param := range method.Params {
		if param.Name == name {
			return param
		}
	}
	return nil
}

func (method *MJMethod) LookUpLocal(name string) *MJVar {
	for _, local := range method.Locals {
		if local.Name == name {
			return local
		}
	}
	return nil
}

type MJClass struct {
	ClassName  string
	ParentName string
	Fields     []*MJVar
	Methods    []*MJMethod
	// preInitialize marks a placeholder created for a parent that has only
	// been referenced so far. A placeholder surviving context building is an
	// unknown class.
	preInitialize bool
}

func (class *MJClass) LookUpField(name string) *MJVar {
	for _, field := range class.Fields {
		if field.Name == name {
			return field
		}
	}
	return nil
}

func (class *MJClass) LookUpMethod(name string) *MJMethod {
	for _, method := range class.Methods {
		if method.Name == name {
			return method
		}
	}
	return nil
}

type ContextTable struct {
	Classes   map[string]*MJClass
	ClassDecl []string // declaration order
	MainClass *MJClass
}

func (table *ContextTable) LookUpClass(className string) *MJClass {
	return table.Classes[className]
}

func (table *ContextTable) parentOf(class *MJClass) *MJClass {
	if class.ParentName == "" {
		return nil
	}
	return table.Classes[class.ParentName]
}

// LookUpMethodInChain resolves a method on a class or the closest ancestor
// declaring it.
func (table *ContextTable) LookUpMethodInChain(className, methodName string) *MJMethod {
	for class := table.LookUpClass(className); class != nil; class = table.parentOf(class) {
		method := class.LookUpMethod(methodName)
		if method != nil {
			return method
		}
	}
	return nil
}

// LookUpFieldInChain resolves a field on a class or an ancestor.
func (table *ContextTable) LookUpFieldInChain(className, fieldName string) *MJVar {
	for class := table.LookUpClass(className); class != nil; class = table.parentOf(class) {
		field := class.LookUpField(fieldName)
		if field != nil {
			return field
		}
	}
	return nil
}

// IsSubtypeOf reports t <: u, which holds when t = u or both are class types
// and t transitively extends u.
func (table *ContextTable) IsSubtypeOf(t, u MJType) bool {
	if t == u {
		return true
	}
	if t.TP != ClassType || u.TP != ClassType {
		return false
	}
	for class := table.LookUpClass(t.Name); class != nil; class = table.parentOf(class) {
		if class.ClassName == u.Name {
			return true
		}
	}
	return false
}

// BuildContextTable is the first pass over the ast: it records every class,
// field, method, parameter and local, closing forward parent references
// through placeholders, then validates the finished table.
func BuildContextTable(goal *GoalAst) (*ContextTable, error) {
	table := &ContextTable{Classes: map[string]*MJClass{}}
	err := table.buildMainClass(goal.MainClass)
	if err != nil {
		return nil, err
	}
	for _, classAst := range goal.Classes {
		err = table.buildClass(classAst)
		if err != nil {
			return nil, err
		}
	}
	err = table.validate()
	if err != nil {
		return nil, err
	}
	return table, nil
}

func (table *ContextTable) buildMainClass(ast *MainClassAst) error {
	mainClass := &MJClass{ClassName: ast.ClassName}
	mainMethod := &MJMethod{
		OwnerClass: ast.ClassName,
		Name:       "main",
		ReturnTP:   MJType{TP: VoidType},
	}
	for _, local := range ast.Locals {
		if mainMethod.LookUpLocal(local.VarName) != nil {
			return makeCheckError(DuplicateLocal, "duplicate local %s in main", local.VarName)
		}
		mainMethod.Locals = append(mainMethod.Locals, &MJVar{Name: local.VarName, TP: local.VarTP})
	}
	mainClass.Methods = append(mainClass.Methods, mainMethod)
	table.Classes[ast.ClassName] = mainClass
	table.MainClass = mainClass
	return nil
}

func (table *ContextTable) buildClass(ast *ClassAst) error {
	existing := table.Classes[ast.ClassName]
	if existing != nil && !existing.preInitialize {
		return makeCheckError(DuplicateClass, "duplicate class name: %s", ast.ClassName)
	}
	class := &MJClass{ClassName: ast.ClassName, ParentName: ast.ParentName}
	if ast.ParentName != "" && table.Classes[ast.ParentName] == nil {
		// Forward reference: hold the parent's place until it is declared.
		table.Classes[ast.ParentName] = &MJClass{ClassName: ast.ParentName, preInitialize: true}
	}
	// Defining the real class replaces the placeholder entry, which closes
	// every child's by-name parent reference at once.
	table.Classes[ast.ClassName] = class
	table.ClassDecl = append(table.ClassDecl, ast.ClassName)
	for _, variable := range ast.Variables {
		if class.LookUpField(variable.VarName) != nil {
			return makeCheckError(DuplicateField, "duplicate field %s in class %s", variable.VarName, ast.ClassName)
		}
		class.Fields = append(class.Fields, &MJVar{Name: variable.VarName, TP: variable.VarTP})
	}
	for _, methodAst := range ast.Methods {
		err := table.buildMethod(class, methodAst)
		if err != nil {
			return err
		}
	}
	return nil
}

func (table *ContextTable) buildMethod(class *MJClass, ast *MethodAst) error {
	if class.LookUpMethod(ast.MethodName) != nil {
		return makeCheckError(DuplicateMethod, "overloading of method %s in class %s", ast.MethodName, class.ClassName)
	}
	method := &MJMethod{
		OwnerClass: class.ClassName,
		Name:       ast.MethodName,
		ReturnTP:   ast.ReturnTP,
	}
	for _, param := range ast.Params {
		if method.LookUpParam(param.ParamName) != nil {
			return makeCheckError(DuplicateParam, "duplicate param %s in method %s.%s",
				param.ParamName, class.ClassName, ast.MethodName)
		}
		method.Params = append(method.Params, &MJVar{Name: param.ParamName, TP: param.ParamTP})
	}
	for _, local := range ast.Locals {
		if method.LookUpLocal(local.VarName) != nil || method.LookUpParam(local.VarName) != nil {
			return makeCheckError(DuplicateLocal, "duplicate local %s in method %s.%s",
				local.VarName, class.ClassName, ast.MethodName)
		}
		method.Locals = append(method.Locals, &MJVar{Name: local.VarName, TP: local.VarTP})
	}
	class.Methods = append(class.Methods, method)
	return nil
}

// validate checks the finished table: no placeholder survives, the
// inheritance graph is a forest, every named type is declared, fields are not
// shadowed across the chain, and overrides keep the parent signature.
func (table *ContextTable) validate() error {
	for _, className := range table.ClassDecl {
		class := table.Classes[className]
		if class.ParentName != "" {
			parent := table.Classes[class.ParentName]
			if parent == nil || parent.preInitialize {
				return makeCheckError(UnknownClass, "class %s extends undeclared class %s",
					class.ClassName, class.ParentName)
			}
		}
		err := table.checkInheritanceCycle(class)
		if err != nil {
			return err
		}
	}
	for _, className := range table.ClassDecl {
		class := table.Classes[className]
		err := table.checkClassTypes(class)
		if err != nil {
			return err
		}
		err = table.checkFieldShadowing(class)
		if err != nil {
			return err
		}
		for _, method := range class.Methods {
			err = table.checkOverride(class, method)
			if err != nil {
				return err
			}
		}
	}
	return table.checkClassTypes(table.MainClass)
}

func (table *ContextTable) checkInheritanceCycle(class *MJClass) error {
	slow, fast := class, table.parentOf(class)
	for fast != nil {
		if fast == slow {
			return makeCheckError(CyclicInheritance, "class %s is part of an inheritance cycle", class.ClassName)
		}
		slow = table.parentOf(slow)
		fast = table.parentOf(fast)
		if fast == nil {
			break
		}
		fast = table.parentOf(fast)
	}
	return nil
}

func (table *ContextTable) checkDeclaredType(t MJType, where string) error {
	if t.TP != ClassType {
		return nil
	}
	class := table.Classes[t.Name]
	if class == nil || class.preInitialize {
		return makeCheckError(UnknownType, "unknown type %s at %s", t.Name, where)
	}
	return nil
}

func (table *ContextTable) checkClassTypes(class *MJClass) error {
	for _, field := range class.Fields {
		err := table.checkDeclaredType(field.TP, class.ClassName+"."+field.Name)
		if err != nil {
			return err
		}
	}
	for _, method := range class.Methods {
		where := class.ClassName + "." + method.Name
		err := table.checkDeclaredType(method.ReturnTP, where)
		if err != nil {
			return err
		}
		for _, param := range method.Params {
			err = table.checkDeclaredType(param.TP, where)
			if err != nil {
				return err
			}
		}
		for _, local := range method.Locals {
			err = table.checkDeclaredType(local.TP, where)
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// MiniJava forbids field shadowing: a field name must be unique across the
// whole inheritance chain.
func (table *ContextTable) checkFieldShadowing(class *MJClass) error {
	for _, field := range class.Fields {
		for parent := table.parentOf(class); parent != nil; parent = table.parentOf(parent) {
			if parent.LookUpField(field.Name) != nil {
				return makeCheckError(DuplicateField, "field %s of class %s shadows class %s",
					field.Name, class.ClassName, parent.ClassName)
			}
		}
	}
	return nil
}

// An override must keep identical parameter types and may narrow the return
// type.
func (table *ContextTable) checkOverride(class *MJClass, method *MJMethod) error {
	for parent := table.parentOf(class); parent != nil; parent = table.parentOf(parent) {
		overridden := parent.LookUpMethod(method.Name)
		if overridden == nil {
			continue
		}
		if len(method.Params) != len(overridden.Params) {
			return makeCheckError(DuplicateMethod, "method %s.%s overloads %s.%s",
				class.ClassName, method.Name, parent.ClassName, method.Name)
		}
		for i, param := range method.Params {
			if param.TP != overridden.Params[i].TP {
				return makeCheckError(DuplicateMethod, "method %s.%s overloads %s.%s",
					class.ClassName, method.Name, parent.ClassName, method.Name)
			}
		}
		if !table.IsSubtypeOf(method.ReturnTP, overridden.ReturnTP) {
			return makeCheckError(TypeMismatch, "method %s.%s return type %s is not a subtype of %s",
				class.ClassName, method.Name, method.ReturnTP, overridden.ReturnTP)
		}
		return nil
	}
	return nil
}
