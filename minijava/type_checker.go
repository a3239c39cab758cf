package minijava

// Second pass: every expression gets a type, every statement is validated
// against the context table, the first violation aborts.

// TypeCheck validates the whole program against the table built by
// BuildContextTable.
func TypeCheck(goal *GoalAst, table *ContextTable) error {
	mainMethod := table.MainClass.Methods[0]
	err := table.typeCheckStatements(table.MainClass, mainMethod, goal.MainClass.Statements)
	if err != nil {
		return err
	}
	for _, classAst := range goal.Classes {
		class := table.LookUpClass(classAst.ClassName)
		for _, methodAst := range classAst.Methods {
			err = table.typeCheckMethod(class, methodAst)
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func (table *ContextTable) typeCheckMethod(class *MJClass, ast *MethodAst) error {
	method := class.LookUpMethod(ast.MethodName)
	err := table.typeCheckStatements(class, method, ast.Statements)
	if err != nil {
		return err
	}
	returnTP, err := table.TypeOfExpression(class, method, ast.ReturnExpr)
	if err != nil {
		return err
	}
	if !table.IsSubtypeOf(returnTP, method.ReturnTP) {
		return makeCheckError(TypeMismatch, "expected %s but real %s at return of %s.%s",
			method.ReturnTP, returnTP, class.ClassName, method.Name)
	}
	return nil
}

func (table *ContextTable) typeCheckStatements(class *MJClass, method *MJMethod, statements []*StatementAst) error {
	for _, statement := range statements {
		err := table.typeCheckStatement(class, method, statement)
		if err != nil {
			return err
		}
	}
	return nil
}

func (table *ContextTable) typeCheckStatement(class *MJClass, method *MJMethod, statement *StatementAst) error {
	switch statement.StatementTP {
	case BlockStatementTP:
		return table.typeCheckStatements(class, method, statement.Statement.(*BlockStatementAst).Statements)
	case AssignStatementTP:
		return table.typeCheckAssignStatement(class, method, statement.Statement.(*AssignStatementAst))
	case ArrayAssignStatementTP:
		return table.typeCheckArrayAssignStatement(class, method, statement.Statement.(*ArrayAssignStatementAst))
	case IfStatementTP:
		return table.typeCheckIfStatement(class, method, statement.Statement.(*IfStatementAst))
	case WhileStatementTP:
		return table.typeCheckWhileStatement(class, method, statement.Statement.(*WhileStatementAst))
	case PrintStatementTP:
		return table.typeCheckPrintStatement(class, method, statement.Statement.(*PrintStatementAst))
	}
	return nil
}

func (table *ContextTable) typeCheckAssignStatement(class *MJClass, method *MJMethod, ast *AssignStatementAst) error {
	idTP, err := table.typeOfIdentifier(class, method, ast.Id)
	if err != nil {
		return err
	}
	valueTP, err := table.TypeOfExpression(class, method, ast.Value)
	if err != nil {
		return err
	}
	if !table.IsSubtypeOf(valueTP, idTP) {
		return makeCheckError(TypeMismatch, "expected %s but real %s at assignment to %s", idTP, valueTP, ast.Id)
	}
	return nil
}

func (table *ContextTable) typeCheckArrayAssignStatement(class *MJClass, method *MJMethod, ast *ArrayAssignStatementAst) error {
	idTP, err := table.typeOfIdentifier(class, method, ast.Id)
	if err != nil {
		return err
	}
	if idTP.TP != IntArrayType {
		return makeCheckError(TypeMismatch, "expected int[] but real %s at array assignment to %s", idTP, ast.Id)
	}
	err = table.expectExpressionType(class, method, ast.Index, MJType{TP: IntType}, "array index")
	if err != nil {
		return err
	}
	return table.expectExpressionType(class, method, ast.Value, MJType{TP: IntType}, "array element")
}

func (table *ContextTable) typeCheckIfStatement(class *MJClass, method *MJMethod, ast *IfStatementAst) error {
	err := table.expectExpressionType(class, method, ast.Condition, MJType{TP: BooleanType}, "if condition")
	if err != nil {
		return err
	}
	err = table.typeCheckStatement(class, method, ast.Then)
	if err != nil {
		return err
	}
	return table.typeCheckStatement(class, method, ast.Else)
}

func (table *ContextTable) typeCheckWhileStatement(class *MJClass, method *MJMethod, ast *WhileStatementAst) error {
	err := table.expectExpressionType(class, method, ast.Condition, MJType{TP: BooleanType}, "while condition")
	if err != nil {
		return err
	}
	return table.typeCheckStatement(class, method, ast.Body)
}

func (table *ContextTable) typeCheckPrintStatement(class *MJClass, method *MJMethod, ast *PrintStatementAst) error {
	return table.expectExpressionType(class, method, ast.Value, MJType{TP: IntType}, "println")
}

func (table *ContextTable) expectExpressionType(class *MJClass, method *MJMethod, expr *ExpressionAst,
	expected MJType, context string) error {
	real, err := table.TypeOfExpression(class, method, expr)
	if err != nil {
		return err
	}
	if real != expected {
		return makeCheckError(TypeMismatch, "expected %s but real %s at %s", expected, real, context)
	}
	return nil
}

// typeOfIdentifier resolves an identifier as local first, then parameter,
// then inherited field.
func (table *ContextTable) typeOfIdentifier(class *MJClass, method *MJMethod, name string) (MJType, error) {
	local := method.LookUpLocal(name)
	if local != nil {
		return local.TP, nil
	}
	param := method.LookUpParam(name)
	if param != nil {
		return param.TP, nil
	}
	if class != table.MainClass {
		field := table.LookUpFieldInChain(class.ClassName, name)
		if field != nil {
			return field.TP, nil
		}
	}
	return MJType{}, makeCheckError(UnboundIdent, "cannot find %s in method %s.%s", name, class.ClassName, method.Name)
}

// TypeOfExpression types one expression. The translator reuses it to resolve
// the static type of call receivers.
func (table *ContextTable) TypeOfExpression(class *MJClass, method *MJMethod, expr *ExpressionAst) (MJType, error) {
	switch expr.ExpressionTP {
	case IntegerLiteralTP:
		return MJType{TP: IntType}, nil
	case TrueLiteralTP, FalseLiteralTP:
		return MJType{TP: BooleanType}, nil
	case IdentifierExpressionTP:
		return table.typeOfIdentifier(class, method, expr.Expr.(string))
	case ThisExpressionTP:
		if class == table.MainClass {
			return MJType{}, makeCheckError(UnboundIdent, "cannot use this in main")
		}
		return MJType{TP: ClassType, Name: class.ClassName}, nil
	case AndExpressionTP:
		return table.typeOfBinaryExpression(class, method, expr, MJType{TP: BooleanType}, MJType{TP: BooleanType}, "&&")
	case CompareExpressionTP:
		return table.typeOfBinaryExpression(class, method, expr, MJType{TP: IntType}, MJType{TP: BooleanType}, "<")
	case PlusExpressionTP:
		return table.typeOfBinaryExpression(class, method, expr, MJType{TP: IntType}, MJType{TP: IntType}, "+")
	case MinusExpressionTP:
		return table.typeOfBinaryExpression(class, method, expr, MJType{TP: IntType}, MJType{TP: IntType}, "-")
	case TimesExpressionTP:
		return table.typeOfBinaryExpression(class, method, expr, MJType{TP: IntType}, MJType{TP: IntType}, "*")
	case ArrayLookupTP:
		lookup := expr.Expr.(*ArrayLookupAst)
		err := table.expectExpressionType(class, method, lookup.Array, MJType{TP: IntArrayType}, "array lookup")
		if err != nil {
			return MJType{}, err
		}
		err = table.expectExpressionType(class, method, lookup.Index, MJType{TP: IntType}, "array index")
		if err != nil {
			return MJType{}, err
		}
		return MJType{TP: IntType}, nil
	case ArrayLengthTP:
		err := table.expectExpressionType(class, method, expr.Expr.(*ExpressionAst), MJType{TP: IntArrayType}, "length")
		if err != nil {
			return MJType{}, err
		}
		return MJType{TP: IntType}, nil
	case CallExpressionTP:
		return table.typeOfCallExpression(class, method, expr.Expr.(*CallAst))
	case NewArrayTP:
		err := table.expectExpressionType(class, method, expr.Expr.(*ExpressionAst), MJType{TP: IntType}, "new int[]")
		if err != nil {
			return MJType{}, err
		}
		return MJType{TP: IntArrayType}, nil
	case NewObjectTP:
		className := expr.Expr.(string)
		newClass := table.LookUpClass(className)
		if newClass == nil || newClass.preInitialize {
			return MJType{}, makeCheckError(UnknownClass, "cannot find class %s", className)
		}
		return MJType{TP: ClassType, Name: className}, nil
	case NotExpressionTP:
		err := table.expectExpressionType(class, method, expr.Expr.(*ExpressionAst), MJType{TP: BooleanType}, "!")
		if err != nil {
			return MJType{}, err
		}
		return MJType{TP: BooleanType}, nil
	case BracketExpressionTP:
		return table.TypeOfExpression(class, method, expr.Expr.(*ExpressionAst))
	}
	return MJType{}, makeCheckError(TypeMismatch, "unknown expression in method %s.%s", class.ClassName, method.Name)
}

func (table *ContextTable) typeOfBinaryExpression(class *MJClass, method *MJMethod, expr *ExpressionAst,
	operandTP, resultTP MJType, op string) (MJType, error) {
	binary := expr.Expr.(*BinaryExpressionAst)
	err := table.expectExpressionType(class, method, binary.Left, operandTP, op)
	if err != nil {
		return MJType{}, err
	}
	err = table.expectExpressionType(class, method, binary.Right, operandTP, op)
	if err != nil {
		return MJType{}, err
	}
	return resultTP, nil
}

func (table *ContextTable) typeOfCallExpression(class *MJClass, method *MJMethod, call *CallAst) (MJType, error) {
	receiverTP, err := table.TypeOfExpression(class, method, call.Receiver)
	if err != nil {
		return MJType{}, err
	}
	if receiverTP.TP != ClassType {
		return MJType{}, makeCheckError(TypeMismatch, "expected class type but real %s at call of %s",
			receiverTP, call.MethodName)
	}
	callee := table.LookUpMethodInChain(receiverTP.Name, call.MethodName)
	if callee == nil {
		return MJType{}, makeCheckError(UnboundMethod, "cannot find method %s on class %s",
			call.MethodName, receiverTP.Name)
	}
	if len(call.Args) != len(callee.Params) {
		return MJType{}, makeCheckError(ArgCountMismatch, "method %s.%s expected %d arguments but real %d",
			receiverTP.Name, call.MethodName, len(callee.Params), len(call.Args))
	}
	for i, arg := range call.Args {
		argTP, err := table.TypeOfExpression(class, method, arg)
		if err != nil {
			return MJType{}, err
		}
		if !table.IsSubtypeOf(argTP, callee.Params[i].TP) {
			return MJType{}, makeCheckError(TypeMismatch, "expected %s but real %s at %s.%s argument %d",
				callee.Params[i].TP, argTP, receiverTP.Name, call.MethodName, i)
		}
	}
	return callee.ReturnTP, nil
}
