package parser

import (
	"testing"

	"github.com/stretchr/testify/require"

	"wandelscript/types"
)

func parseOne(t *testing.T, source string) Stmt {
	t.Helper()
	program, err := Parse(source)
	require.NoError(t, err)
	require.Len(t, program.Body.Statements, 1)
	return program.Body.Statements[0]
}

func TestParseAssignment(t *testing.T) {
	stmt := parseOne(t, "a = 1 + 2\n")
	assign, ok := stmt.(*AssignStmt)
	require.True(t, ok)
	require.Equal(t, []string{"a"}, assign.Names)
	binary, ok := assign.Value.(*BinaryExpr)
	require.True(t, ok)
	require.Equal(t, TOKEN_PLUS, binary.Operator)
}

func TestParseDestructuring(t *testing.T) {
	stmt := parseOne(t, "a, b, c = d\n")
	assign, ok := stmt.(*AssignStmt)
	require.True(t, ok)
	require.Equal(t, []string{"a", "b", "c"}, assign.Names)
}

func TestParsePrecedence(t *testing.T) {
	// 1 + 2 * 3 parses as 1 + (2 * 3)
	stmt := parseOne(t, "a = 1 + 2 * 3\n")
	assign := stmt.(*AssignStmt)
	add := assign.Value.(*BinaryExpr)
	require.Equal(t, TOKEN_PLUS, add.Operator)
	mul, ok := add.Right.(*BinaryExpr)
	require.True(t, ok)
	require.Equal(t, TOKEN_STAR, mul.Operator)
}

func TestParseComposeBindsTighterThanAddition(t *testing.T) {
	// a :: b + c parses as (a :: b) + c
	stmt := parseOne(t, "x = a :: b + c\n")
	assign := stmt.(*AssignStmt)
	add := assign.Value.(*BinaryExpr)
	require.Equal(t, TOKEN_PLUS, add.Operator)
	compose, ok := add.Left.(*BinaryExpr)
	require.True(t, ok)
	require.Equal(t, TOKEN_COLONCOLON, compose.Operator)
}

func TestParseComposeBindsLooserThanMultiplication(t *testing.T) {
	// a :: b * c parses as a :: (b * c)
	stmt := parseOne(t, "x = a :: b * c\n")
	assign := stmt.(*AssignStmt)
	compose := assign.Value.(*BinaryExpr)
	require.Equal(t, TOKEN_COLONCOLON, compose.Operator)
	mul, ok := compose.Right.(*BinaryExpr)
	require.True(t, ok)
	require.Equal(t, TOKEN_STAR, mul.Operator)
}

func TestParsePostfixLeftAssociative(t *testing.T) {
	stmt := parseOne(t, "x = a[0].b[1]\n")
	assign := stmt.(*AssignStmt)
	outer, ok := assign.Value.(*IndexExpr)
	require.True(t, ok)
	property, ok := outer.Target.(*PropertyExpr)
	require.True(t, ok)
	require.Equal(t, "b", property.Key)
	_, ok = property.Target.(*IndexExpr)
	require.True(t, ok)
}

func TestParseUnaryTilde(t *testing.T) {
	stmt := parseOne(t, "x = ~a :: b\n")
	assign := stmt.(*AssignStmt)
	compose := assign.Value.(*BinaryExpr)
	require.Equal(t, TOKEN_COLONCOLON, compose.Operator)
	unary, ok := compose.Left.(*UnaryExpr)
	require.True(t, ok)
	require.Equal(t, TOKEN_TILDE, unary.Operator)
}

func TestParseMove(t *testing.T) {
	stmt := parseOne(t, "move via line() to (1, 2, 3, 0, 0, 0) with blending(10)\n")
	move, ok := stmt.(*MoveStmt)
	require.True(t, ok)
	require.Nil(t, move.Frame)
	require.NotNil(t, move.Connector)
	require.Equal(t, "line", move.Connector.Name)
	require.Len(t, move.Modifiers, 1)
	require.Equal(t, "blending", move.Modifiers[0].Name)
}

func TestParseMoveWithFrame(t *testing.T) {
	stmt := parseOne(t, "move Flange via p2p() to home\n")
	move := stmt.(*MoveStmt)
	ref, ok := move.Frame.(*ReferenceExpr)
	require.True(t, ok)
	require.Equal(t, "Flange", ref.Name)
}

func TestParseMoveDefaultConnector(t *testing.T) {
	stmt := parseOne(t, "move to (0, 0, 0, 0, 0, 0)\n")
	move := stmt.(*MoveStmt)
	require.Nil(t, move.Connector)
}

func TestParseMoveWithFrameRelation(t *testing.T) {
	stmt := parseOne(t, "move [tool | part] via line() to (1, 2, 3, 0, 0, 0)\n")
	move := stmt.(*MoveStmt)
	require.NotNil(t, move.Relation)
}

func TestParseFrameAssignment(t *testing.T) {
	stmt := parseOne(t, "[a | b] = (0, 0, 10, 0, 0, 0)\n")
	frameAssign, ok := stmt.(*FrameAssignStmt)
	require.True(t, ok)
	require.NotNil(t, frameAssign.Relation)
}

func TestParseIfElifElse(t *testing.T) {
	source := "if a:\n    b = 1\nelif c:\n    b = 2\nelse:\n    b = 3\n"
	stmt := parseOne(t, source)
	ifStmt, ok := stmt.(*IfStmt)
	require.True(t, ok)
	require.Len(t, ifStmt.ElifConds, 1)
	require.NotNil(t, ifStmt.Else)
}

func TestParseForRange(t *testing.T) {
	stmt := parseOne(t, "for i in 3..5:\n    a = i\n")
	forStmt, ok := stmt.(*ForStmt)
	require.True(t, ok)
	require.False(t, forStmt.Range.Exclusive)

	stmt = parseOne(t, "for i in 3..<5:\n    a = i\n")
	forStmt = stmt.(*ForStmt)
	require.True(t, forStmt.Range.Exclusive)
}

func TestParseSwitchSameLevelCases(t *testing.T) {
	source := "switch a:\ncase 1: b = 1\ncase 2: b = 2\ndefault: b = 3\n"
	stmt := parseOne(t, source)
	switchStmt, ok := stmt.(*SwitchStmt)
	require.True(t, ok)
	require.Len(t, switchStmt.CaseExprs, 2)
	require.NotNil(t, switchStmt.Default)
}

func TestParseFuncDef(t *testing.T) {
	source := "def foo(a, b):\n    return a + b\n"
	stmt := parseOne(t, source)
	def, ok := stmt.(*FuncDefStmt)
	require.True(t, ok)
	require.Equal(t, "foo", def.Name)
	require.Equal(t, []string{"a", "b"}, def.Params)
}

func TestParseMoveDef(t *testing.T) {
	source := "movedef zigzag(start >--> end, depth):\n    move via line() to end\n"
	stmt := parseOne(t, source)
	def, ok := stmt.(*MoveDefStmt)
	require.True(t, ok)
	require.Equal(t, "zigzag", def.Name)
	require.Equal(t, "start", def.Start)
	require.Equal(t, "end", def.End)
	require.Equal(t, []string{"depth"}, def.Params)
}

func TestParseInterrupt(t *testing.T) {
	source := "interrupt inter1() when is_equal(\"input4\", 2):\n    a = 12\n"
	stmt := parseOne(t, source)
	interrupt, ok := stmt.(*InterruptDefStmt)
	require.True(t, ok)
	require.Equal(t, "inter1", interrupt.Name)
	require.Equal(t, "is_equal", interrupt.Condition)
	require.Len(t, interrupt.CondArgs, 2)
}

func TestParseActivateDeactivate(t *testing.T) {
	program, err := Parse("activate inter1\ndeactivate inter1\n")
	require.NoError(t, err)
	require.Len(t, program.Body.Statements, 2)
	on := program.Body.Statements[0].(*SwitchInterruptStmt)
	off := program.Body.Statements[1].(*SwitchInterruptStmt)
	require.True(t, on.Activate)
	require.False(t, off.Activate)
}

func TestParseWithContext(t *testing.T) {
	source := "with blending(20), velocity(100):\n    move via p2p() to home\n"
	stmt := parseOne(t, source)
	with, ok := stmt.(*WithStmt)
	require.True(t, ok)
	require.Len(t, with.Modifiers, 2)
}

func TestParseSyncForms(t *testing.T) {
	stmt := parseOne(t, "sync\n")
	sync, ok := stmt.(*SyncStmt)
	require.True(t, ok)
	require.Nil(t, sync.DoBody)

	source := "do:\n    move via p2p() to home\nsync:\n    a = 1\nexcept:\n    a = 2\n"
	stmt = parseOne(t, source)
	sync = stmt.(*SyncStmt)
	require.NotNil(t, sync.DoBody)
	require.NotNil(t, sync.SyncBody)
	require.NotNil(t, sync.ExceptBody)
}

func TestParseRobotContext(t *testing.T) {
	source := "do with controller[0]:\n    move to home\nand do with controller[1]:\n    move to home\n"
	stmt := parseOne(t, source)
	robot, ok := stmt.(*RobotContextStmt)
	require.True(t, ok)
	require.Len(t, robot.Robots, 2)
	require.Len(t, robot.Bodies, 2)
}

func TestParseRecordLiteral(t *testing.T) {
	stmt := parseOne(t, "r = { key1: 1, key2: \"value\" }\n")
	assign := stmt.(*AssignStmt)
	record, ok := assign.Value.(*RecordExpr)
	require.True(t, ok)
	require.Equal(t, []string{"key1", "key2"}, record.Keys)
}

func TestParseOrientationLiteral(t *testing.T) {
	stmt := parseOne(t, "o = (..., 0, pi, 0)\n")
	assign := stmt.(*AssignStmt)
	_, ok := assign.Value.(*OrientationExpr)
	require.True(t, ok)
}

func TestParseReadCallExpressions(t *testing.T) {
	stmt := parseOne(t, "a = read(controller, \"pose\")\n")
	assign := stmt.(*AssignStmt)
	_, ok := assign.Value.(*ReadExpr)
	require.True(t, ok)

	stmt = parseOne(t, "a = call(sensor, \"key\", 1, 2)\n")
	assign = stmt.(*AssignStmt)
	deviceCall, ok := assign.Value.(*CallDeviceExpr)
	require.True(t, ok)
	require.Len(t, deviceCall.Args, 2)
}

func TestParseWriteStatement(t *testing.T) {
	stmt := parseOne(t, "write(controller, \"a\", 12 * 2)\n")
	write, ok := stmt.(*WriteStmt)
	require.True(t, ok)
	require.NotNil(t, write.Value)
}

func TestParsePiLiteral(t *testing.T) {
	stmt := parseOne(t, "a = pi\n")
	assign := stmt.(*AssignStmt)
	literal, ok := assign.Value.(*LiteralExpr)
	require.True(t, ok)
	f, ok := literal.Value.(types.FloatValue)
	require.True(t, ok)
	require.InDelta(t, 3.14159265, f.Val, 1e-8)
}

func TestParseSyntaxErrorHasPosition(t *testing.T) {
	_, err := Parse("a = = 1\n")
	require.Error(t, err)
	require.Contains(t, err.Error(), "line")
}

func TestParseLegacyOrientationMigrates(t *testing.T) {
	stmt := parseOne(t, "a = [..., 1, 2, 3]\n")
	assign := stmt.(*AssignStmt)
	_, ok := assign.Value.(*OrientationExpr)
	require.True(t, ok)
}
