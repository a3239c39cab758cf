package minijava

import (
	"errors"
	"fmt"
	"io"
	"strconv"
)

type Parser struct {
	currentTokenPos int
	currentTokens   []*Token
}

func (parser *Parser) Parse(rd io.Reader) (*GoalAst, error) {
	tokenizer := &Tokenizer{}
	tokens, err := tokenizer.Tokenize(rd)
	if err != nil {
		return nil, err
	}
	parser.currentTokens = tokens
	return parser.ParseGoal()
}

func (parser *Parser) reset() {
	parser.currentTokenPos, parser.currentTokens = 0, nil
}

// Goal is one main class followed by any number of class declarations.
func (parser *Parser) ParseGoal() (*GoalAst, error) {
	mainClass, err := parser.ParseMainClass()
	if err != nil {
		return nil, err
	}
	goal := &GoalAst{MainClass: mainClass}
	for parser.hasRemainTokens() {
		classAst, err := parser.ParseClassDeclaration()
		if err != nil {
			return nil, err
		}
		goal.Classes = append(goal.Classes, classAst)
	}
	return goal, nil
}

// class Identifier { public static void main ( String [ ] Identifier ) { VarDeclaration* Statement* } }
func (parser *Parser) ParseMainClass() (*MainClassAst, error) {
	_, match := parser.expectToken(ClassTP, true)
	if !match {
		return nil, parser.makeError(false)
	}
	classNameToken, match := parser.expectToken(IdentifierTP, true)
	if !match {
		return nil, parser.makeError(false)
	}
	main := &MainClassAst{ClassName: classNameToken.content}
	if !parser.expectTokens(LeftBraceTP, PublicTP, StaticTP, VoidTP, MainTP, LeftParenthesesTP,
		StringTP, LeftSquareBracketTP, RightSquareBracketTP) {
		return nil, makeCheckError(BadMain, "class %s has no valid main method", main.ClassName)
	}
	argsNameToken, match := parser.expectToken(IdentifierTP, true)
	if !match {
		return nil, makeCheckError(BadMain, "class %s has no valid main method", main.ClassName)
	}
	main.ArgsName = argsNameToken.content
	if !parser.expectTokens(RightParenthesesTP, LeftBraceTP) {
		return nil, makeCheckError(BadMain, "class %s has no valid main method", main.ClassName)
	}
	locals, statements, err := parser.parseVarDeclarationsAndStatements()
	if err != nil {
		return nil, err
	}
	main.Locals, main.Statements = locals, statements
	if !parser.expectTokens(RightBraceTP, RightBraceTP) {
		return nil, parser.makeError(false)
	}
	return main, nil
}

// class Identifier ( extends Identifier )? { VarDeclaration* MethodDeclaration* }
func (parser *Parser) ParseClassDeclaration() (*ClassAst, error) {
	_, match := parser.expectToken(ClassTP, true)
	if !match {
		return nil, parser.makeError(false)
	}
	classNameToken, match := parser.expectToken(IdentifierTP, true)
	if !match {
		return nil, parser.makeError(false)
	}
	classAst := &ClassAst{ClassName: classNameToken.content}
	token, err := parser.getCurrentToken()
	if err != nil {
		return nil, err
	}
	if token.tp == ExtendsTP {
		parser.stepForward()
		parentNameToken, match := parser.expectToken(IdentifierTP, true)
		if !match {
			return nil, parser.makeError(false)
		}
		classAst.ParentName = parentNameToken.content
	}
	_, match = parser.expectToken(LeftBraceTP, true)
	if !match {
		return nil, parser.makeError(false)
	}
	for parser.hasRemainTokens() {
		token, _ := parser.getCurrentToken()
		if token.tp != IntTP && token.tp != BooleanTP && token.tp != IdentifierTP {
			break
		}
		variable, err := parser.parseVarDeclaration()
		if err != nil {
			return nil, err
		}
		classAst.Variables = append(classAst.Variables, variable)
	}
	for parser.hasRemainTokens() {
		token, _ := parser.getCurrentToken()
		if token.tp != PublicTP {
			break
		}
		method, err := parser.parseMethodDeclaration()
		if err != nil {
			return nil, err
		}
		classAst.Methods = append(classAst.Methods, method)
	}
	_, match = parser.expectToken(RightBraceTP, true)
	if !match {
		return nil, parser.makeError(false)
	}
	return classAst, nil
}

// Var declaration like: [int|int[]|boolean|Identifier] varName ;
func (parser *Parser) parseVarDeclaration() (*VarDeclAst, error) {
	varType, err := parser.parseType()
	if err != nil {
		return nil, err
	}
	varNameToken, match := parser.expectToken(IdentifierTP, true)
	if !match {
		return nil, parser.makeError(false)
	}
	_, match = parser.expectToken(SemiColonTP, true)
	if !match {
		return nil, parser.makeError(false)
	}
	return &VarDeclAst{VarName: varNameToken.content, VarTP: varType}, nil
}

func (parser *Parser) parseType() (t MJType, err error) {
	token, err := parser.getCurrentToken()
	if err != nil {
		return t, err
	}
	switch token.tp {
	case IntTP:
		parser.stepForward()
		next, err := parser.getCurrentToken()
		if err != nil {
			return t, err
		}
		if next.tp == LeftSquareBracketTP {
			parser.stepForward()
			_, match := parser.expectToken(RightSquareBracketTP, true)
			if !match {
				return t, parser.makeError(false)
			}
			t.TP = IntArrayType
			return t, nil
		}
		t.TP = IntType
	case BooleanTP:
		parser.stepForward()
		t.TP = BooleanType
	case IdentifierTP:
		parser.stepForward()
		t.TP, t.Name = ClassType, token.content
	default:
		return t, parser.makeError(true)
	}
	return t, nil
}

// public Type Identifier ( ParamList? ) { VarDeclaration* Statement* return Expression ; }
func (parser *Parser) parseMethodDeclaration() (*MethodAst, error) {
	_, match := parser.expectToken(PublicTP, true)
	if !match {
		return nil, parser.makeError(false)
	}
	returnType, err := parser.parseType()
	if err != nil {
		return nil, err
	}
	methodNameToken, match := parser.expectToken(IdentifierTP, true)
	if !match {
		return nil, parser.makeError(false)
	}
	method := &MethodAst{MethodName: methodNameToken.content, ReturnTP: returnType}
	_, match = parser.expectToken(LeftParenthesesTP, true)
	if !match {
		return nil, parser.makeError(false)
	}
	params, err := parser.parseParamList()
	if err != nil {
		return nil, err
	}
	method.Params = params
	if !parser.expectTokens(RightParenthesesTP, LeftBraceTP) {
		return nil, parser.makeError(false)
	}
	locals, statements, err := parser.parseVarDeclarationsAndStatements()
	if err != nil {
		return nil, err
	}
	method.Locals, method.Statements = locals, statements
	_, match = parser.expectToken(ReturnTP, true)
	if !match {
		return nil, parser.makeError(false)
	}
	returnExpr, err := parser.parseExpression()
	if err != nil {
		return nil, err
	}
	method.ReturnExpr = returnExpr
	if !parser.expectTokens(SemiColonTP, RightBraceTP) {
		return nil, parser.makeError(false)
	}
	return method, nil
}

func (parser *Parser) parseParamList() (params []*ParamAst, err error) {
	token, err := parser.getCurrentToken()
	if err != nil {
		return nil, err
	}
	if token.tp == RightParenthesesTP {
		return nil, nil
	}
	for {
		paramType, err := parser.parseType()
		if err != nil {
			return nil, err
		}
		paramNameToken, match := parser.expectToken(IdentifierTP, true)
		if !match {
			return nil, parser.makeError(false)
		}
		params = append(params, &ParamAst{ParamName: paramNameToken.content, ParamTP: paramType})
		token, err := parser.getCurrentToken()
		if err != nil {
			return nil, err
		}
		if token.tp != CommaTP {
			return params, nil
		}
		parser.stepForward()
	}
}

// Variable declarations appear before statements. A leading identifier is a
// declaration only when another identifier follows it, otherwise it starts an
// assignment statement.
func (parser *Parser) parseVarDeclarationsAndStatements() (locals []*VarDeclAst, statements []*StatementAst, err error) {
	for parser.hasRemainTokens() {
		token, _ := parser.getCurrentToken()
		isDeclaration := token.tp == IntTP || token.tp == BooleanTP ||
			(token.tp == IdentifierTP && parser.peekTokenTP(1) == IdentifierTP)
		if !isDeclaration {
			break
		}
		local, err := parser.parseVarDeclaration()
		if err != nil {
			return nil, nil, err
		}
		locals = append(locals, local)
	}
	for parser.hasRemainTokens() {
		token, _ := parser.getCurrentToken()
		if token.tp == RightBraceTP || token.tp == ReturnTP {
			break
		}
		statement, err := parser.parseStatement()
		if err != nil {
			return nil, nil, err
		}
		statements = append(statements, statement)
	}
	return locals, statements, nil
}

func (parser *Parser) parseStatement() (*StatementAst, error) {
	token, err := parser.getCurrentToken()
	if err != nil {
		return nil, err
	}
	switch token.tp {
	case LeftBraceTP:
		return parser.parseBlockStatement()
	case IfTP:
		return parser.parseIfStatement()
	case WhileTP:
		return parser.parseWhileStatement()
	case IdentifierTP:
		if token.content == "System" && parser.peekTokenTP(1) == DotTP {
			return parser.parsePrintStatement()
		}
		return parser.parseAssignStatement()
	default:
		return nil, parser.makeError(true)
	}
}

func (parser *Parser) parseBlockStatement() (*StatementAst, error) {
	_, match := parser.expectToken(LeftBraceTP, true)
	if !match {
		return nil, parser.makeError(false)
	}
	block := &BlockStatementAst{}
	for parser.hasRemainTokens() {
		token, _ := parser.getCurrentToken()
		if token.tp == RightBraceTP {
			break
		}
		statement, err := parser.parseStatement()
		if err != nil {
			return nil, err
		}
		block.Statements = append(block.Statements, statement)
	}
	_, match = parser.expectToken(RightBraceTP, true)
	if !match {
		return nil, parser.makeError(false)
	}
	return &StatementAst{StatementTP: BlockStatementTP, Statement: block}, nil
}

// id = Expression ; or id [ Expression ] = Expression ;
func (parser *Parser) parseAssignStatement() (*StatementAst, error) {
	idToken, match := parser.expectToken(IdentifierTP, true)
	if !match {
		return nil, parser.makeError(false)
	}
	token, err := parser.getCurrentToken()
	if err != nil {
		return nil, err
	}
	if token.tp == LeftSquareBracketTP {
		parser.stepForward()
		index, err := parser.parseExpression()
		if err != nil {
			return nil, err
		}
		if !parser.expectTokens(RightSquareBracketTP, EqualTP) {
			return nil, parser.makeError(false)
		}
		value, err := parser.parseExpression()
		if err != nil {
			return nil, err
		}
		_, match = parser.expectToken(SemiColonTP, true)
		if !match {
			return nil, parser.makeError(false)
		}
		return &StatementAst{
			StatementTP: ArrayAssignStatementTP,
			Statement:   &ArrayAssignStatementAst{Id: idToken.content, Index: index, Value: value},
		}, nil
	}
	_, match = parser.expectToken(EqualTP, true)
	if !match {
		return nil, parser.makeError(false)
	}
	value, err := parser.parseExpression()
	if err != nil {
		return nil, err
	}
	_, match = parser.expectToken(SemiColonTP, true)
	if !match {
		return nil, parser.makeError(false)
	}
	return &StatementAst{
		StatementTP: AssignStatementTP,
		Statement:   &AssignStatementAst{Id: idToken.content, Value: value},
	}, nil
}

// if ( Expression ) Statement else Statement
func (parser *Parser) parseIfStatement() (*StatementAst, error) {
	if !parser.expectTokens(IfTP, LeftParenthesesTP) {
		return nil, parser.makeError(false)
	}
	condition, err := parser.parseExpression()
	if err != nil {
		return nil, err
	}
	_, match := parser.expectToken(RightParenthesesTP, true)
	if !match {
		return nil, parser.makeError(false)
	}
	then, err := parser.parseStatement()
	if err != nil {
		return nil, err
	}
	_, match = parser.expectToken(ElseTP, true)
	if !match {
		return nil, parser.makeError(false)
	}
	elseStatement, err := parser.parseStatement()
	if err != nil {
		return nil, err
	}
	return &StatementAst{
		StatementTP: IfStatementTP,
		Statement:   &IfStatementAst{Condition: condition, Then: then, Else: elseStatement},
	}, nil
}

// while ( Expression ) Statement
func (parser *Parser) parseWhileStatement() (*StatementAst, error) {
	if !parser.expectTokens(WhileTP, LeftParenthesesTP) {
		return nil, parser.makeError(false)
	}
	condition, err := parser.parseExpression()
	if err != nil {
		return nil, err
	}
	_, match := parser.expectToken(RightParenthesesTP, true)
	if !match {
		return nil, parser.makeError(false)
	}
	body, err := parser.parseStatement()
	if err != nil {
		return nil, err
	}
	return &StatementAst{
		StatementTP: WhileStatementTP,
		Statement:   &WhileStatementAst{Condition: condition, Body: body},
	}, nil
}

// System . out . println ( Expression ) ;
func (parser *Parser) parsePrintStatement() (*StatementAst, error) {
	systemToken, match := parser.expectToken(IdentifierTP, true)
	if !match || systemToken.content != "System" {
		return nil, parser.makeError(false)
	}
	_, match = parser.expectToken(DotTP, true)
	if !match {
		return nil, parser.makeError(false)
	}
	outToken, match := parser.expectToken(IdentifierTP, true)
	if !match || outToken.content != "out" {
		return nil, parser.makeError(false)
	}
	_, match = parser.expectToken(DotTP, true)
	if !match {
		return nil, parser.makeError(false)
	}
	printlnToken, match := parser.expectToken(IdentifierTP, true)
	if !match || printlnToken.content != "println" {
		return nil, parser.makeError(false)
	}
	_, match = parser.expectToken(LeftParenthesesTP, true)
	if !match {
		return nil, parser.makeError(false)
	}
	value, err := parser.parseExpression()
	if err != nil {
		return nil, err
	}
	if !parser.expectTokens(RightParenthesesTP, SemiColonTP) {
		return nil, parser.makeError(false)
	}
	return &StatementAst{StatementTP: PrintStatementTP, Statement: &PrintStatementAst{Value: value}}, nil
}

// An expression is a primary expression optionally followed by exactly one
// binary operator and primary operand, one array lookup, or one dot suffix.
// Deeper nesting goes through bracket expressions.
func (parser *Parser) parseExpression() (*ExpressionAst, error) {
	left, err := parser.parsePrimaryExpression()
	if err != nil {
		return nil, err
	}
	if !parser.hasRemainTokens() {
		return left, nil
	}
	token, _ := parser.getCurrentToken()
	switch token.tp {
	case AndTP, LessTP, AddTP, MinusTP, MultiplyTP:
		parser.stepForward()
		right, err := parser.parsePrimaryExpression()
		if err != nil {
			return nil, err
		}
		return &ExpressionAst{
			ExpressionTP: binaryExpressionTP(token.tp),
			Expr:         &BinaryExpressionAst{Left: left, Right: right},
		}, nil
	case LeftSquareBracketTP:
		parser.stepForward()
		index, err := parser.parsePrimaryExpression()
		if err != nil {
			return nil, err
		}
		_, match := parser.expectToken(RightSquareBracketTP, true)
		if !match {
			return nil, parser.makeError(false)
		}
		return &ExpressionAst{ExpressionTP: ArrayLookupTP, Expr: &ArrayLookupAst{Array: left, Index: index}}, nil
	case DotTP:
		return parser.parseDotSuffix(left)
	}
	return left, nil
}

func binaryExpressionTP(tokenTP TokenType) ExpressionType {
	switch tokenTP {
	case AndTP:
		return AndExpressionTP
	case LessTP:
		return CompareExpressionTP
	case AddTP:
		return PlusExpressionTP
	case MinusTP:
		return MinusExpressionTP
	default:
		return TimesExpressionTP
	}
}

// . length or . Identifier ( ExpressionList? )
func (parser *Parser) parseDotSuffix(receiver *ExpressionAst) (*ExpressionAst, error) {
	_, match := parser.expectToken(DotTP, true)
	if !match {
		return nil, parser.makeError(false)
	}
	token, err := parser.getCurrentToken()
	if err != nil {
		return nil, err
	}
	if token.tp == LengthTP {
		parser.stepForward()
		return &ExpressionAst{ExpressionTP: ArrayLengthTP, Expr: receiver}, nil
	}
	methodNameToken, match := parser.expectToken(IdentifierTP, true)
	if !match {
		return nil, parser.makeError(false)
	}
	_, match = parser.expectToken(LeftParenthesesTP, true)
	if !match {
		return nil, parser.makeError(false)
	}
	call := &CallAst{Receiver: receiver, MethodName: methodNameToken.content}
	token, err = parser.getCurrentToken()
	if err != nil {
		return nil, err
	}
	if token.tp != RightParenthesesTP {
		for {
			arg, err := parser.parseExpression()
			if err != nil {
				return nil, err
			}
			call.Args = append(call.Args, arg)
			token, err := parser.getCurrentToken()
			if err != nil {
				return nil, err
			}
			if token.tp != CommaTP {
				break
			}
			parser.stepForward()
		}
	}
	_, match = parser.expectToken(RightParenthesesTP, true)
	if !match {
		return nil, parser.makeError(false)
	}
	return &ExpressionAst{ExpressionTP: CallExpressionTP, Expr: call}, nil
}

func (parser *Parser) parsePrimaryExpression() (*ExpressionAst, error) {
	token, err := parser.getCurrentToken()
	if err != nil {
		return nil, err
	}
	switch token.tp {
	case IntegerTP:
		parser.stepForward()
		value, err := strconv.Atoi(token.content)
		if err != nil {
			return nil, parser.makeError(false)
		}
		return &ExpressionAst{ExpressionTP: IntegerLiteralTP, Expr: value}, nil
	case TrueTP:
		parser.stepForward()
		return &ExpressionAst{ExpressionTP: TrueLiteralTP}, nil
	case FalseTP:
		parser.stepForward()
		return &ExpressionAst{ExpressionTP: FalseLiteralTP}, nil
	case IdentifierTP:
		parser.stepForward()
		return &ExpressionAst{ExpressionTP: IdentifierExpressionTP, Expr: token.content}, nil
	case ThisTP:
		parser.stepForward()
		return &ExpressionAst{ExpressionTP: ThisExpressionTP}, nil
	case NewTP:
		return parser.parseNewExpression()
	case NotTP:
		parser.stepForward()
		expr, err := parser.parseExpression()
		if err != nil {
			return nil, err
		}
		return &ExpressionAst{ExpressionTP: NotExpressionTP, Expr: expr}, nil
	case LeftParenthesesTP:
		parser.stepForward()
		expr, err := parser.parseExpression()
		if err != nil {
			return nil, err
		}
		_, match := parser.expectToken(RightParenthesesTP, true)
		if !match {
			return nil, parser.makeError(false)
		}
		return &ExpressionAst{ExpressionTP: BracketExpressionTP, Expr: expr}, nil
	default:
		return nil, parser.makeError(true)
	}
}

// new int [ Expression ] or new Identifier ( )
func (parser *Parser) parseNewExpression() (*ExpressionAst, error) {
	_, match := parser.expectToken(NewTP, true)
	if !match {
		return nil, parser.makeError(false)
	}
	token, err := parser.getCurrentToken()
	if err != nil {
		return nil, err
	}
	if token.tp == IntTP {
		if !parser.expectTokens(IntTP, LeftSquareBracketTP) {
			return nil, parser.makeError(false)
		}
		size, err := parser.parseExpression()
		if err != nil {
			return nil, err
		}
		_, match = parser.expectToken(RightSquareBracketTP, true)
		if !match {
			return nil, parser.makeError(false)
		}
		return &ExpressionAst{ExpressionTP: NewArrayTP, Expr: size}, nil
	}
	classNameToken, match := parser.expectToken(IdentifierTP, true)
	if !match {
		return nil, parser.makeError(false)
	}
	if !parser.expectTokens(LeftParenthesesTP, RightParenthesesTP) {
		return nil, parser.makeError(false)
	}
	return &ExpressionAst{ExpressionTP: NewObjectTP, Expr: classNameToken.content}, nil
}

func (parser *Parser) getCurrentToken() (*Token, error) {
	if !parser.hasRemainTokens() {
		return nil, parser.makeError(false)
	}
	return parser.currentTokens[parser.currentTokenPos], nil
}

func (parser *Parser) peekTokenTP(offset int) TokenType {
	if parser.currentTokenPos+offset >= len(parser.currentTokens) {
		return -1
	}
	return parser.currentTokens[parser.currentTokenPos+offset].tp
}

func (parser *Parser) stepForward() {
	parser.currentTokenPos++
}

func (parser *Parser) hasRemainTokens() bool {
	return parser.currentTokenPos < len(parser.currentTokens)
}

// expectTokens consumes the expected token types in order and reports whether
// all of them matched.
func (parser *Parser) expectTokens(expectedTokenTPs ...TokenType) bool {
	for _, tp := range expectedTokenTPs {
		_, match := parser.expectToken(tp, true)
		if !match {
			return false
		}
	}
	return true
}

func (parser *Parser) expectToken(expectedTokenTP TokenType, walk bool) (*Token, bool) {
	if !parser.hasRemainTokens() {
		return nil, false
	}
	token := parser.currentTokens[parser.currentTokenPos]
	if token.tp != expectedTokenTP {
		return nil, false
	}
	if walk {
		parser.stepForward()
	}
	return token, true
}

func (parser *Parser) makeError(useCurrentPos bool) error {
	pos := parser.currentTokenPos
	if useCurrentPos && pos >= len(parser.currentTokens) {
		pos = len(parser.currentTokens) - 1
	}
	if pos < 0 || pos >= len(parser.currentTokens) {
		return errors.New("parser error: unexpected end of input")
	}
	token := parser.currentTokens[pos]
	return errors.New(fmt.Sprintf("parser error near %s at line %d", token.content, token.line))
}
