package parser

import (
	"fmt"

	"wandelscript/exception"
)

// Parser parses wandelscript source code into an AST
type Parser struct {
	lexer   *Lexer
	current Token
	peek    Token
}

// Parse runs the legacy-syntax migration, lexes and parses a whole
// program.
func Parse(source string) (*Program, error) {
	source = MigrateLegacyPoses(source)
	p, err := NewParser(source)
	if err != nil {
		return nil, err
	}
	body, err := p.parseProgram()
	if err != nil {
		return nil, err
	}
	return &Program{Body: body}, nil
}

// NewParser creates a new Parser instance
func NewParser(input string) (*Parser, error) {
	p := &Parser{lexer: NewLexer(input)}
	// Read two tokens to initialize current and peek
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	return p, nil
}

// nextToken advances to the next token
func (p *Parser) nextToken() error {
	p.current = p.peek
	tok, err := p.lexer.NextToken()
	if err != nil {
		return err
	}
	p.peek = tok
	return nil
}

func (p *Parser) syntaxError(format string, args ...any) error {
	pos := p.current.Position
	return &exception.SyntaxError{
		Range: &exception.TextRange{
			Start: exception.TextPosition{Line: pos.Line, Column: pos.Column},
			End:   exception.TextPosition{Line: pos.Line, Column: pos.Column},
		},
		Text: fmt.Sprintf(format, args...),
	}
}

// expect checks the current token type and advances past it
func (p *Parser) expect(t TokenType) (Token, error) {
	if p.current.Type != t {
		return Token{}, p.syntaxError("expected %s but found %s", t, p.current.Type)
	}
	tok := p.current
	if err := p.nextToken(); err != nil {
		return Token{}, err
	}
	return tok, nil
}

// accept advances past the current token if it has the given type
func (p *Parser) accept(t TokenType) (bool, error) {
	if p.current.Type != t {
		return false, nil
	}
	return true, p.nextToken()
}

// skipNewlines consumes any run of NEWLINE tokens
func (p *Parser) skipNewlines() error {
	for p.current.Type == TOKEN_NEWLINE {
		if err := p.nextToken(); err != nil {
			return err
		}
	}
	return nil
}

func (p *Parser) parseProgram() (*Block, error) {
	block := &Block{Pos: p.current.Position}
	for {
		if err := p.skipNewlines(); err != nil {
			return nil, err
		}
		if p.current.Type == TOKEN_EOF {
			return block, nil
		}
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		block.Statements = append(block.Statements, stmt)
	}
}

// parseBlock parses statements until a DEDENT or EOF and consumes the
// DEDENT
func (p *Parser) parseBlock() (*Block, error) {
	block := &Block{Pos: p.current.Position}
	for {
		if err := p.skipNewlines(); err != nil {
			return nil, err
		}
		if p.current.Type == TOKEN_DEDENT {
			return block, p.nextToken()
		}
		if p.current.Type == TOKEN_EOF {
			return block, nil
		}
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		block.Statements = append(block.Statements, stmt)
	}
}

// parseSuite parses ':' followed by either an indented block or a
// single statement on the same line
func (p *Parser) parseSuite() (*Block, error) {
	if _, err := p.expect(TOKEN_COLON); err != nil {
		return nil, err
	}
	if p.current.Type == TOKEN_NEWLINE {
		if err := p.skipNewlines(); err != nil {
			return nil, err
		}
		if _, err := p.expect(TOKEN_INDENT); err != nil {
			return nil, err
		}
		return p.parseBlock()
	}
	// inline suite: a single statement on the header line
	pos := p.current.Position
	stmt, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	return &Block{Pos: pos, Statements: []Stmt{stmt}}, nil
}

// endStatement consumes the trailing NEWLINE of a simple statement.
// DEDENT and EOF are also acceptable statement ends.
func (p *Parser) endStatement() error {
	switch p.current.Type {
	case TOKEN_NEWLINE:
		return p.nextToken()
	case TOKEN_DEDENT, TOKEN_EOF:
		return nil
	default:
		return p.syntaxError("unexpected %s after statement", p.current.Type)
	}
}

func (p *Parser) parseStatement() (Stmt, error) {
	switch p.current.Type {
	case TOKEN_IF:
		return p.parseIf()
	case TOKEN_FOR:
		return p.parseFor()
	case TOKEN_WHILE:
		return p.parseWhile()
	case TOKEN_REPEAT:
		return p.parseRepeat()
	case TOKEN_SWITCH:
		return p.parseSwitch()
	case TOKEN_DEF:
		return p.parseFuncDef()
	case TOKEN_MOVEDEF:
		return p.parseMoveDef()
	case TOKEN_INTERRUPT:
		return p.parseInterrupt()
	case TOKEN_WITH:
		return p.parseWith()
	case TOKEN_DO:
		return p.parseDo()
	case TOKEN_SYNC:
		return p.parseSync()
	case TOKEN_MOVE:
		return p.parseMove()
	case TOKEN_ACTIVATE, TOKEN_DEACTIVATE:
		return p.parseSwitchInterrupt()
	case TOKEN_WAIT:
		return p.parseWait()
	case TOKEN_RAISE:
		return p.parseRaise()
	case TOKEN_BREAK:
		pos := p.current.Position
		if err := p.nextToken(); err != nil {
			return nil, err
		}
		return &BreakStmt{Pos: pos}, p.endStatement()
	case TOKEN_PASS:
		pos := p.current.Position
		if err := p.nextToken(); err != nil {
			return nil, err
		}
		return &PassStmt{Pos: pos}, p.endStatement()
	case TOKEN_STOP:
		pos := p.current.Position
		if err := p.nextToken(); err != nil {
			return nil, err
		}
		return &StopStmt{Pos: pos}, p.endStatement()
	case TOKEN_RETURN:
		return p.parseReturn()
	case TOKEN_PRINT:
		return p.parsePrint()
	case TOKEN_WRITE:
		return p.parseWrite()
	case TOKEN_LBRACKET:
		return p.parseFrameAssign()
	case TOKEN_IDENTIFIER:
		if p.peek.Type == TOKEN_ASSIGN || p.peek.Type == TOKEN_COMMA {
			return p.parseAssignment()
		}
		return p.parseExprStatement()
	default:
		return p.parseExprStatement()
	}
}

func (p *Parser) parseExprStatement() (Stmt, error) {
	pos := p.current.Position
	expr, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	return &ExprStmt{Pos: pos, Expr: expr}, p.endStatement()
}

// parseAssignment handles single-name and destructuring assignments
func (p *Parser) parseAssignment() (Stmt, error) {
	pos := p.current.Position
	names := []string{p.current.Value}
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	for p.current.Type == TOKEN_COMMA {
		if err := p.nextToken(); err != nil {
			return nil, err
		}
		tok, err := p.expect(TOKEN_IDENTIFIER)
		if err != nil {
			return nil, err
		}
		names = append(names, tok.Value)
	}
	if _, err := p.expect(TOKEN_ASSIGN); err != nil {
		return nil, err
	}
	value, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	return &AssignStmt{Pos: pos, Names: names, Value: value}, p.endStatement()
}

// parseFrameAssign parses [target | source] = expr, or falls back to
// an expression statement when the bracket is a list literal or a
// frame relation read.
func (p *Parser) parseFrameAssign() (Stmt, error) {
	pos := p.current.Position
	expr, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	relation, ok := expr.(*FrameRelationExpr)
	if !ok || p.current.Type != TOKEN_ASSIGN {
		return &ExprStmt{Pos: pos, Expr: expr}, p.endStatement()
	}
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	value, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	return &FrameAssignStmt{Pos: pos, Relation: relation, Value: value}, p.endStatement()
}

func (p *Parser) parseIf() (Stmt, error) {
	pos := p.current.Position
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	body, err := p.parseSuite()
	if err != nil {
		return nil, err
	}
	stmt := &IfStmt{Pos: pos, Condition: cond, Body: body}
	for p.current.Type == TOKEN_ELIF {
		if err := p.nextToken(); err != nil {
			return nil, err
		}
		elifCond, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		elifBody, err := p.parseSuite()
		if err != nil {
			return nil, err
		}
		stmt.ElifConds = append(stmt.ElifConds, elifCond)
		stmt.ElifBodies = append(stmt.ElifBodies, elifBody)
	}
	if p.current.Type == TOKEN_ELSE {
		if err := p.nextToken(); err != nil {
			return nil, err
		}
		elseBody, err := p.parseSuite()
		if err != nil {
			return nil, err
		}
		stmt.Else = elseBody
	}
	return stmt, nil
}

func (p *Parser) parseFor() (Stmt, error) {
	pos := p.current.Position
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	name, err := p.expect(TOKEN_IDENTIFIER)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TOKEN_IN); err != nil {
		return nil, err
	}
	start, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	rangePos := p.current.Position
	exclusive := false
	switch p.current.Type {
	case TOKEN_RANGE:
	case TOKEN_RANGE_LT:
		exclusive = true
	default:
		return nil, p.syntaxError("expected .. or ..< in for loop range")
	}
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	end, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	body, err := p.parseSuite()
	if err != nil {
		return nil, err
	}
	return &ForStmt{
		Pos:   pos,
		Name:  name.Value,
		Range: &RangeExpr{Pos: rangePos, Start: start, End: end, Exclusive: exclusive},
		Body:  body,
	}, nil
}

func (p *Parser) parseWhile() (Stmt, error) {
	pos := p.current.Position
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	body, err := p.parseSuite()
	if err != nil {
		return nil, err
	}
	return &WhileStmt{Pos: pos, Condition: cond, Body: body}, nil
}

func (p *Parser) parseRepeat() (Stmt, error) {
	pos := p.current.Position
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	count, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	body, err := p.parseSuite()
	if err != nil {
		return nil, err
	}
	return &RepeatStmt{Pos: pos, Count: count, Body: body}, nil
}

// parseSwitch accepts case lines both indented under the switch header
// and at the same level as the header.
func (p *Parser) parseSwitch() (Stmt, error) {
	pos := p.current.Position
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	subject, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TOKEN_COLON); err != nil {
		return nil, err
	}
	if err := p.skipNewlines(); err != nil {
		return nil, err
	}
	indented, err := p.accept(TOKEN_INDENT)
	if err != nil {
		return nil, err
	}
	stmt := &SwitchStmt{Pos: pos, Subject: subject}
	for {
		if err := p.skipNewlines(); err != nil {
			return nil, err
		}
		switch p.current.Type {
		case TOKEN_CASE:
			if err := p.nextToken(); err != nil {
				return nil, err
			}
			caseExpr, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			caseBody, err := p.parseSuite()
			if err != nil {
				return nil, err
			}
			stmt.CaseExprs = append(stmt.CaseExprs, caseExpr)
			stmt.CaseBodies = append(stmt.CaseBodies, caseBody)
			continue
		case TOKEN_DEFAULT:
			if err := p.nextToken(); err != nil {
				return nil, err
			}
			defaultBody, err := p.parseSuite()
			if err != nil {
				return nil, err
			}
			stmt.Default = defaultBody
			continue
		}
		break
	}
	if indented && p.current.Type == TOKEN_DEDENT {
		if err := p.nextToken(); err != nil {
			return nil, err
		}
	}
	return stmt, nil
}

func (p *Parser) parseParamList() ([]string, error) {
	if _, err := p.expect(TOKEN_LPAREN); err != nil {
		return nil, err
	}
	var params []string
	for p.current.Type != TOKEN_RPAREN {
		tok, err := p.expect(TOKEN_IDENTIFIER)
		if err != nil {
			return nil, err
		}
		params = append(params, tok.Value)
		if p.current.Type != TOKEN_COMMA {
			break
		}
		if err := p.nextToken(); err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(TOKEN_RPAREN); err != nil {
		return nil, err
	}
	return params, nil
}

func (p *Parser) parseFuncDef() (Stmt, error) {
	pos := p.current.Position
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	name, err := p.expect(TOKEN_IDENTIFIER)
	if err != nil {
		return nil, err
	}
	params, err := p.parseParamList()
	if err != nil {
		return nil, err
	}
	body, err := p.parseSuite()
	if err != nil {
		return nil, err
	}
	return &FuncDefStmt{Pos: pos, Name: name.Value, Params: params, Body: body}, nil
}

// parseMoveDef parses movedef name(start >--> end, params...): body
func (p *Parser) parseMoveDef() (Stmt, error) {
	pos := p.current.Position
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	name, err := p.expect(TOKEN_IDENTIFIER)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TOKEN_LPAREN); err != nil {
		return nil, err
	}
	start, err := p.expect(TOKEN_IDENTIFIER)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TOKEN_PATHARROW); err != nil {
		return nil, err
	}
	end, err := p.expect(TOKEN_IDENTIFIER)
	if err != nil {
		return nil, err
	}
	var params []string
	for p.current.Type == TOKEN_COMMA {
		if err := p.nextToken(); err != nil {
			return nil, err
		}
		tok, err := p.expect(TOKEN_IDENTIFIER)
		if err != nil {
			return nil, err
		}
		params = append(params, tok.Value)
	}
	if _, err := p.expect(TOKEN_RPAREN); err != nil {
		return nil, err
	}
	body, err := p.parseSuite()
	if err != nil {
		return nil, err
	}
	return &MoveDefStmt{
		Pos:    pos,
		Name:   name.Value,
		Start:  start.Value,
		End:    end.Value,
		Params: params,
		Body:   body,
	}, nil
}

// parseInterrupt parses interrupt name(params) when cond(args): body
func (p *Parser) parseInterrupt() (Stmt, error) {
	pos := p.current.Position
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	name, err := p.expect(TOKEN_IDENTIFIER)
	if err != nil {
		return nil, err
	}
	params, err := p.parseParamList()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TOKEN_WHEN); err != nil {
		return nil, err
	}
	cond, err := p.expect(TOKEN_IDENTIFIER)
	if err != nil {
		return nil, err
	}
	args, err := p.parseArgList()
	if err != nil {
		return nil, err
	}
	body, err := p.parseSuite()
	if err != nil {
		return nil, err
	}
	return &InterruptDefStmt{
		Pos:       pos,
		Name:      name.Value,
		Params:    params,
		Condition: cond.Value,
		CondArgs:  args,
		Body:      body,
	}, nil
}

func (p *Parser) parseSwitchInterrupt() (Stmt, error) {
	pos := p.current.Position
	activate := p.current.Type == TOKEN_ACTIVATE
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	name, err := p.expect(TOKEN_IDENTIFIER)
	if err != nil {
		return nil, err
	}
	return &SwitchInterruptStmt{Pos: pos, Activate: activate, Name: name.Value}, p.endStatement()
}

// parseWith parses with modifier(args), ...: body
func (p *Parser) parseWith() (Stmt, error) {
	pos := p.current.Position
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	modifiers, err := p.parseModifierCalls()
	if err != nil {
		return nil, err
	}
	body, err := p.parseSuite()
	if err != nil {
		return nil, err
	}
	return &WithStmt{Pos: pos, Modifiers: modifiers, Body: body}, nil
}

func (p *Parser) parseModifierCalls() ([]*CallExpr, error) {
	var modifiers []*CallExpr
	for {
		name, err := p.expect(TOKEN_IDENTIFIER)
		if err != nil {
			return nil, err
		}
		args, err := p.parseArgList()
		if err != nil {
			return nil, err
		}
		modifiers = append(modifiers, &CallExpr{Pos: name.Position, Name: name.Value, Args: args})
		if p.current.Type != TOKEN_COMMA {
			return modifiers, nil
		}
		if err := p.nextToken(); err != nil {
			return nil, err
		}
	}
}

// parseDo handles both the robot context (do with r: ... and do with
// r2: ...) and the sync block (do: ... sync: ... except: ...)
func (p *Parser) parseDo() (Stmt, error) {
	pos := p.current.Position
	if p.peek.Type == TOKEN_WITH {
		return p.parseRobotContext()
	}
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	doBody, err := p.parseSuite()
	if err != nil {
		return nil, err
	}
	stmt := &SyncStmt{Pos: pos, DoBody: doBody}
	if p.current.Type == TOKEN_SYNC && p.peek.Type == TOKEN_COLON {
		if err := p.nextToken(); err != nil {
			return nil, err
		}
		syncBody, err := p.parseSuite()
		if err != nil {
			return nil, err
		}
		stmt.SyncBody = syncBody
	}
	if p.current.Type == TOKEN_EXCEPT {
		if err := p.nextToken(); err != nil {
			return nil, err
		}
		exceptBody, err := p.parseSuite()
		if err != nil {
			return nil, err
		}
		stmt.ExceptBody = exceptBody
	}
	return stmt, nil
}

func (p *Parser) parseRobotContext() (Stmt, error) {
	pos := p.current.Position
	stmt := &RobotContextStmt{Pos: pos}
	for {
		if _, err := p.expect(TOKEN_DO); err != nil {
			return nil, err
		}
		if _, err := p.expect(TOKEN_WITH); err != nil {
			return nil, err
		}
		robot, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		body, err := p.parseSuite()
		if err != nil {
			return nil, err
		}
		stmt.Robots = append(stmt.Robots, robot)
		stmt.Bodies = append(stmt.Bodies, body)
		if p.current.Type != TOKEN_AND || p.peek.Type != TOKEN_DO {
			return stmt, nil
		}
		if err := p.nextToken(); err != nil {
			return nil, err
		}
	}
}

// parseSync handles the bare sync statement and sync: body
func (p *Parser) parseSync() (Stmt, error) {
	pos := p.current.Position
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	if p.current.Type == TOKEN_COLON {
		syncBody, err := p.parseSuite()
		if err != nil {
			return nil, err
		}
		return &SyncStmt{Pos: pos, SyncBody: syncBody}, nil
	}
	return &SyncStmt{Pos: pos}, p.endStatement()
}

// parseMove parses
//
//	move [frame-or-relation] [via connector(args)] to target [with modifiers]
func (p *Parser) parseMove() (Stmt, error) {
	pos := p.current.Position
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	stmt := &MoveStmt{Pos: pos}

	if p.current.Type != TOKEN_VIA && p.current.Type != TOKEN_TO {
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if relation, ok := expr.(*FrameRelationExpr); ok {
			stmt.Relation = relation
		} else {
			stmt.Frame = expr
		}
	}

	if p.current.Type == TOKEN_VIA {
		if err := p.nextToken(); err != nil {
			return nil, err
		}
		name, err := p.expect(TOKEN_IDENTIFIER)
		if err != nil {
			return nil, err
		}
		args, err := p.parseArgList()
		if err != nil {
			return nil, err
		}
		stmt.Connector = &ConnectorCall{Pos: name.Position, Name: name.Value, Args: args}
	}

	if _, err := p.expect(TOKEN_TO); err != nil {
		return nil, err
	}
	target, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	stmt.Target = target

	if p.current.Type == TOKEN_WITH {
		if err := p.nextToken(); err != nil {
			return nil, err
		}
		modifiers, err := p.parseModifierCalls()
		if err != nil {
			return nil, err
		}
		stmt.Modifiers = modifiers
	}
	return stmt, p.endStatement()
}

func (p *Parser) parseWait() (Stmt, error) {
	pos := p.current.Position
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	duration, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	return &WaitStmt{Pos: pos, Duration: duration}, p.endStatement()
}

func (p *Parser) parseRaise() (Stmt, error) {
	pos := p.current.Position
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	value, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	return &RaiseStmt{Pos: pos, Value: value}, p.endStatement()
}

func (p *Parser) parseReturn() (Stmt, error) {
	pos := p.current.Position
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	stmt := &ReturnStmt{Pos: pos}
	if p.current.Type != TOKEN_NEWLINE && p.current.Type != TOKEN_DEDENT && p.current.Type != TOKEN_EOF {
		value, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		stmt.Value = value
	}
	return stmt, p.endStatement()
}

func (p *Parser) parsePrint() (Stmt, error) {
	pos := p.current.Position
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	if _, err := p.expect(TOKEN_LPAREN); err != nil {
		return nil, err
	}
	value, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TOKEN_RPAREN); err != nil {
		return nil, err
	}
	return &PrintStmt{Pos: pos, Value: value}, p.endStatement()
}

func (p *Parser) parseWrite() (Stmt, error) {
	pos := p.current.Position
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	if _, err := p.expect(TOKEN_LPAREN); err != nil {
		return nil, err
	}
	device, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TOKEN_COMMA); err != nil {
		return nil, err
	}
	key, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TOKEN_COMMA); err != nil {
		return nil, err
	}
	value, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TOKEN_RPAREN); err != nil {
		return nil, err
	}
	return &WriteStmt{Pos: pos, Device: device, Key: key, Value: value}, p.endStatement()
}
