package translator

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/candicezhang0827/UCLA-CS-132/minijava"
	"github.com/candicezhang0827/UCLA-CS-132/vapor"
)

// Lowering from the typed MiniJava ast to Vapor text. Temporaries are named
// t.N with a per-method counter, guard and control labels get per-function
// counters, indentation follows the structural scope.

type Translator struct {
	table   *minijava.ContextTable
	layouts *vapor.Layouts

	lines       []string
	indentLevel int

	varCounter    int
	nullCounter   int
	boundsCounter int
	ifCounter     int
	whileCounter  int

	currentClass     *minijava.MJClass
	currentMethod    *minijava.MJMethod
	shouldPrintAlloc bool
}

// Translate lowers a checked program to Vapor. The table must already be
// validated, translation itself cannot fail on a well-typed program.
func Translate(goal *minijava.GoalAst, table *minijava.ContextTable, layouts *vapor.Layouts) (string, error) {
	translator := &Translator{table: table, layouts: layouts}
	return translator.run(goal)
}

func (translator *Translator) run(goal *minijava.GoalAst) (string, error) {
	for _, className := range translator.layouts.Order {
		translator.emitVTable(translator.layouts.LookUp(className))
		translator.emit("")
	}
	err := translator.translateMainClass(goal.MainClass)
	if err != nil {
		return "", err
	}
	for _, classAst := range goal.Classes {
		for _, methodAst := range classAst.Methods {
			translator.emit("")
			err = translator.translateMethod(classAst, methodAst)
			if err != nil {
				return "", err
			}
		}
	}
	if translator.shouldPrintAlloc {
		translator.emit("")
		translator.emitArrayAlloc()
	}
	return strings.Join(translator.lines, "\n") + "\n", nil
}

func (translator *Translator) emitVTable(layout *vapor.VClass) {
	translator.emit("const vmt_" + layout.Name)
	translator.indentLevel++
	for _, method := range layout.Methods {
		translator.emit(":" + method.DefiningClass + "." + method.Name)
	}
	translator.indentLevel--
}

// The runtime helper backing new int[e], emitted once at the end iff some
// array allocation was lowered.
func (translator *Translator) emitArrayAlloc() {
	translator.emit("func AllocArray(size)")
	translator.indentLevel++
	translator.emit("bytes = MulS(size 4)")
	translator.emit("bytes = Add(bytes 4)")
	translator.emit("v = HeapAllocZ(bytes)")
	translator.emit("[v] = size")
	translator.emit("ret v")
	translator.indentLevel--
}

func (translator *Translator) translateMainClass(ast *minijava.MainClassAst) error {
	translator.resetCounters()
	translator.currentClass = translator.table.MainClass
	translator.currentMethod = translator.table.MainClass.Methods[0]
	translator.emit("func Main()")
	translator.indentLevel++
	err := translator.translateStatements(ast.Statements)
	if err != nil {
		return err
	}
	translator.emit("ret")
	translator.indentLevel--
	return nil
}

func (translator *Translator) translateMethod(classAst *minijava.ClassAst, ast *minijava.MethodAst) error {
	translator.resetCounters()
	translator.currentClass = translator.table.LookUpClass(classAst.ClassName)
	translator.currentMethod = translator.currentClass.LookUpMethod(ast.MethodName)
	header := "func " + classAst.ClassName + "." + ast.MethodName + "(this"
	for _, param := range ast.Params {
		header += " " + param.ParamName
	}
	header += ")"
	translator.emit(header)
	translator.indentLevel++
	err := translator.translateStatements(ast.Statements)
	if err != nil {
		return err
	}
	returnValue, err := translator.translateExpression(ast.ReturnExpr)
	if err != nil {
		return err
	}
	translator.emit("ret " + returnValue)
	translator.indentLevel--
	return nil
}

func (translator *Translator) resetCounters() {
	translator.varCounter = 0
	translator.nullCounter, translator.boundsCounter = 1, 1
	translator.ifCounter, translator.whileCounter = 1, 1
}

func (translator *Translator) translateStatements(statements []*minijava.StatementAst) error {
	for _, statement := range statements {
		err := translator.translateStatement(statement)
		if err != nil {
			return err
		}
	}
	return nil
}

func (translator *Translator) translateStatement(statement *minijava.StatementAst) error {
	switch statement.StatementTP {
	case minijava.BlockStatementTP:
		translator.indentLevel++
		err := translator.translateStatements(statement.Statement.(*minijava.BlockStatementAst).Statements)
		translator.indentLevel--
		return err
	case minijava.AssignStatementTP:
		return translator.translateAssignStatement(statement.Statement.(*minijava.AssignStatementAst))
	case minijava.ArrayAssignStatementTP:
		return translator.translateArrayAssignStatement(statement.Statement.(*minijava.ArrayAssignStatementAst))
	case minijava.IfStatementTP:
		return translator.translateIfStatement(statement.Statement.(*minijava.IfStatementAst))
	case minijava.WhileStatementTP:
		return translator.translateWhileStatement(statement.Statement.(*minijava.WhileStatementAst))
	case minijava.PrintStatementTP:
		return translator.translatePrintStatement(statement.Statement.(*minijava.PrintStatementAst))
	}
	return nil
}

func (translator *Translator) translateAssignStatement(ast *minijava.AssignStatementAst) error {
	value, err := translator.translateExpression(ast.Value)
	if err != nil {
		return err
	}
	if translator.isLocal(ast.Id) {
		translator.emit(ast.Id + " = " + value)
		return nil
	}
	// Not local, so it is an instance field, guaranteed by the checker.
	offset := translator.fieldOffset(ast.Id)
	translator.emit(fmt.Sprintf("[this + %d] = %s", offset, value))
	return nil
}

func (translator *Translator) translateArrayAssignStatement(ast *minijava.ArrayAssignStatementAst) error {
	index, err := translator.translateExpression(ast.Index)
	if err != nil {
		return err
	}
	address, err := translator.arrayElementAddress(
		&minijava.ExpressionAst{ExpressionTP: minijava.IdentifierExpressionTP, Expr: ast.Id}, index)
	if err != nil {
		return err
	}
	value, err := translator.translateExpression(ast.Value)
	if err != nil {
		return err
	}
	translator.emit("[" + address + " + 4] = " + value)
	return nil
}

func (translator *Translator) translateIfStatement(ast *minijava.IfStatementAst) error {
	currentIfCount := translator.ifCounter
	translator.ifCounter++
	condition, err := translator.translateExpression(ast.Condition)
	if err != nil {
		return err
	}
	elseLabel := fmt.Sprintf("if%d_else", currentIfCount)
	endLabel := fmt.Sprintf("if%d_end", currentIfCount)
	translator.emit("if0 " + condition + " goto :" + elseLabel)
	translator.indentLevel++
	err = translator.translateStatement(ast.Then)
	if err != nil {
		return err
	}
	translator.emit("goto :" + endLabel)
	translator.indentLevel--
	translator.emit(elseLabel + ":")
	translator.indentLevel++
	err = translator.translateStatement(ast.Else)
	if err != nil {
		return err
	}
	translator.indentLevel--
	translator.emit(endLabel + ":")
	return nil
}

func (translator *Translator) translateWhileStatement(ast *minijava.WhileStatementAst) error {
	currentWhileCount := translator.whileCounter
	translator.whileCounter++
	topLabel := fmt.Sprintf("while%d_top", currentWhileCount)
	endLabel := fmt.Sprintf("while%d_end", currentWhileCount)
	translator.emit(topLabel + ":")
	condition, err := translator.translateExpression(ast.Condition)
	if err != nil {
		return err
	}
	translator.emit("if0 " + condition + " goto :" + endLabel)
	translator.indentLevel++
	err = translator.translateStatement(ast.Body)
	if err != nil {
		return err
	}
	translator.emit("goto :" + topLabel)
	translator.indentLevel--
	translator.emit(endLabel + ":")
	return nil
}

func (translator *Translator) translatePrintStatement(ast *minijava.PrintStatementAst) error {
	value, err := translator.translateExpression(ast.Value)
	if err != nil {
		return err
	}
	translator.emit("PrintIntS(" + value + ")")
	return nil
}

// translateExpression emits the instructions computing an expression and
// returns the operand holding its value: a literal, a variable name or a
// temporary.
func (translator *Translator) translateExpression(expr *minijava.ExpressionAst) (string, error) {
	switch expr.ExpressionTP {
	case minijava.IntegerLiteralTP:
		return strconv.Itoa(expr.Expr.(int)), nil
	case minijava.TrueLiteralTP:
		return "1", nil
	case minijava.FalseLiteralTP:
		return "0", nil
	case minijava.IdentifierExpressionTP:
		return translator.translateIdentifier(expr.Expr.(string))
	case minijava.ThisExpressionTP:
		return "this", nil
	case minijava.AndExpressionTP:
		return translator.translateAndExpression(expr.Expr.(*minijava.BinaryExpressionAst))
	case minijava.CompareExpressionTP:
		return translator.translateBinaryExpression(expr.Expr.(*minijava.BinaryExpressionAst), "LtS")
	case minijava.PlusExpressionTP:
		return translator.translateBinaryExpression(expr.Expr.(*minijava.BinaryExpressionAst), "Add")
	case minijava.MinusExpressionTP:
		return translator.translateBinaryExpression(expr.Expr.(*minijava.BinaryExpressionAst), "Sub")
	case minijava.TimesExpressionTP:
		return translator.translateBinaryExpression(expr.Expr.(*minijava.BinaryExpressionAst), "MulS")
	case minijava.ArrayLookupTP:
		return translator.translateArrayLookup(expr.Expr.(*minijava.ArrayLookupAst))
	case minijava.ArrayLengthTP:
		return translator.translateArrayLength(expr.Expr.(*minijava.ExpressionAst))
	case minijava.CallExpressionTP:
		return translator.translateCallExpression(expr.Expr.(*minijava.CallAst))
	case minijava.NewArrayTP:
		return translator.translateNewArray(expr.Expr.(*minijava.ExpressionAst))
	case minijava.NewObjectTP:
		return translator.translateNewObject(expr.Expr.(string))
	case minijava.NotExpressionTP:
		return translator.translateNotExpression(expr.Expr.(*minijava.ExpressionAst))
	case minijava.BracketExpressionTP:
		return translator.translateExpression(expr.Expr.(*minijava.ExpressionAst))
	}
	return "", fmt.Errorf("translator error: unknown expression in %s.%s",
		translator.currentClass.ClassName, translator.currentMethod.Name)
}

func (translator *Translator) translateIdentifier(name string) (string, error) {
	if translator.isLocal(name) {
		return name, nil
	}
	temp := translator.createTemp()
	translator.emit(fmt.Sprintf("%s = [this + %d]", temp, translator.fieldOffset(name)))
	return temp, nil
}

func (translator *Translator) translateBinaryExpression(ast *minijava.BinaryExpressionAst, op string) (string, error) {
	left, err := translator.translateExpression(ast.Left)
	if err != nil {
		return "", err
	}
	right, err := translator.translateExpression(ast.Right)
	if err != nil {
		return "", err
	}
	temp := translator.createTemp()
	translator.emit(temp + " = " + op + "(" + left + " " + right + ")")
	return temp, nil
}

// Both operands are 0/1 so multiplication is conjunction; Eq(1 _) renormalizes.
func (translator *Translator) translateAndExpression(ast *minijava.BinaryExpressionAst) (string, error) {
	product, err := translator.translateBinaryExpression(ast, "MulS")
	if err != nil {
		return "", err
	}
	temp := translator.createTemp()
	translator.emit(temp + " = Eq(1 " + product + ")")
	return temp, nil
}

// !e is Sub(1 e) on the 0/1 boolean encoding.
func (translator *Translator) translateNotExpression(ast *minijava.ExpressionAst) (string, error) {
	value, err := translator.translateExpression(ast)
	if err != nil {
		return "", err
	}
	temp := translator.createTemp()
	translator.emit(temp + " = Sub(1 " + value + ")")
	return temp, nil
}

func (translator *Translator) translateArrayLookup(ast *minijava.ArrayLookupAst) (string, error) {
	index, err := translator.translateExpression(ast.Index)
	if err != nil {
		return "", err
	}
	address, err := translator.arrayElementAddress(ast.Array, index)
	if err != nil {
		return "", err
	}
	temp := translator.createTemp()
	translator.emit(temp + " = [" + address + " + 4]")
	return temp, nil
}

func (translator *Translator) translateArrayLength(ast *minijava.ExpressionAst) (string, error) {
	pointer, err := translator.dereferenceToTemp(ast)
	if err != nil {
		return "", err
	}
	translator.emitNullCheck(pointer)
	temp := translator.createTemp()
	translator.emit(temp + " = [" + pointer + "]")
	return temp, nil
}

// Virtual dispatch: load the vtable pointer from the receiver, load the
// method address from the slot of the receiver's static type, call with the
// receiver as first argument.
func (translator *Translator) translateCallExpression(ast *minijava.CallAst) (string, error) {
	receiverTP, err := translator.table.TypeOfExpression(translator.currentClass, translator.currentMethod, ast.Receiver)
	if err != nil {
		return "", err
	}
	receiver, err := translator.translateExpression(ast.Receiver)
	if err != nil {
		return "", err
	}
	slot := translator.layouts.LookUp(receiverTP.Name).MethodSlot(ast.MethodName)
	vtable := translator.createTemp()
	translator.emit(vtable + " = [" + receiver + "]")
	function := translator.createTemp()
	translator.emit(fmt.Sprintf("%s = [%s + %d]", function, vtable, slot))
	arguments := make([]string, 0, len(ast.Args))
	for _, arg := range ast.Args {
		argument, err := translator.translateExpression(arg)
		if err != nil {
			return "", err
		}
		arguments = append(arguments, argument)
	}
	result := translator.createTemp()
	call := result + " = call " + function + "(" + receiver
	for _, argument := range arguments {
		call += " " + argument
	}
	call += ")"
	translator.emit(call)
	return result, nil
}

func (translator *Translator) translateNewObject(className string) (string, error) {
	layout := translator.layouts.LookUp(className)
	temp := translator.createTemp()
	translator.emit(fmt.Sprintf("%s = HeapAllocZ(%d)", temp, layout.Size()))
	translator.emit("[" + temp + "] = :vmt_" + className)
	translator.emitNullCheck(temp)
	return temp, nil
}

func (translator *Translator) translateNewArray(size *minijava.ExpressionAst) (string, error) {
	translator.shouldPrintAlloc = true
	value, err := translator.translateExpression(size)
	if err != nil {
		return "", err
	}
	temp := translator.createTemp()
	translator.emit(temp + " = call :AllocArray(" + value + ")")
	return temp, nil
}

// arrayElementAddress dereferences the array, guards against null and out of
// bounds, and returns the temporary holding the element base address; the
// element itself sits at [address + 4].
func (translator *Translator) arrayElementAddress(array *minijava.ExpressionAst, index string) (string, error) {
	pointer, err := translator.dereferenceToTemp(array)
	if err != nil {
		return "", err
	}
	translator.emitNullCheck(pointer)
	temp := translator.createTemp()
	translator.emit(temp + " = [" + pointer + "]")
	translator.emit(temp + " = LtS(" + index + " " + temp + ")")
	translator.emitBoundsCheck(temp)
	translator.emit(temp + " = MulS(" + index + " 4)")
	translator.emit(temp + " = Add(" + temp + " " + pointer + ")")
	return temp, nil
}

// dereferenceToTemp copies an array pointer into a fresh temporary: straight
// from a local, through [this + off] for a field, through the computed value
// otherwise.
func (translator *Translator) dereferenceToTemp(array *minijava.ExpressionAst) (string, error) {
	temp := translator.createTemp()
	if array.ExpressionTP == minijava.IdentifierExpressionTP {
		name := array.Expr.(string)
		if translator.isLocal(name) {
			translator.emit(temp + " = " + name)
		} else {
			translator.emit(fmt.Sprintf("%s = [this + %d]", temp, translator.fieldOffset(name)))
		}
		return temp, nil
	}
	value, err := translator.translateExpression(array)
	if err != nil {
		return "", err
	}
	translator.emit(temp + " = " + value)
	return temp, nil
}

func (translator *Translator) emitNullCheck(variable string) {
	currentNullCount := translator.nullCounter
	translator.nullCounter++
	label := fmt.Sprintf("null%d", currentNullCount)
	translator.emit("if " + variable + " goto :" + label)
	translator.indentLevel++
	translator.emit("Error(\"null pointer\")")
	translator.indentLevel--
	translator.emit(label + ":")
}

func (translator *Translator) emitBoundsCheck(variable string) {
	currentBoundsCount := translator.boundsCounter
	translator.boundsCounter++
	label := fmt.Sprintf("bounds%d", currentBoundsCount)
	translator.emit("if " + variable + " goto :" + label)
	translator.indentLevel++
	translator.emit("Error(\"array index out of bounds\")")
	translator.indentLevel--
	translator.emit(label + ":")
}

func (translator *Translator) isLocal(name string) bool {
	return translator.currentMethod.LookUpLocal(name) != nil ||
		translator.currentMethod.LookUpParam(name) != nil
}

// The class layout already carries inherited fields, so offsets of the whole
// chain resolve on the current class.
func (translator *Translator) fieldOffset(name string) int {
	return translator.layouts.LookUp(translator.currentClass.ClassName).FieldOffset(name)
}

func (translator *Translator) createTemp() string {
	temp := "t." + strconv.Itoa(translator.varCounter)
	translator.varCounter++
	return temp
}

func (translator *Translator) emit(line string) {
	if line == "" {
		translator.lines = append(translator.lines, "")
		return
	}
	translator.lines = append(translator.lines, strings.Repeat("\t", translator.indentLevel)+line)
}
