package exception

import "fmt"

// TextPosition is a position in wandelscript source code.
type TextPosition struct {
	Line   int
	Column int
}

// TextRange is a region in wandelscript source code.
type TextRange struct {
	Start TextPosition
	End   TextPosition
}

func (r TextRange) String() string {
	return fmt.Sprintf("line %d column %d", r.Start.Line, r.Start.Column)
}

// ProgramError is implemented by every error raised while checking,
// parsing or executing a program. Location may be nil when the error
// has no useful position.
type ProgramError interface {
	error
	Location() *TextRange
}

func format(location *TextRange, message string) string {
	if location != nil {
		return fmt.Sprintf("At line %d column %d: %s", location.Start.Line, location.Start.Column, message)
	}
	return message
}

// SyntaxError is a lex or parse failure. Fatal, no recovery.
type SyntaxError struct {
	Range *TextRange
	Text  string
}

func (e *SyntaxError) Error() string {
	msg := e.Text
	if msg == "" {
		msg = "Unknown syntax error"
	}
	return format(e.Range, msg)
}

func (e *SyntaxError) Location() *TextRange { return e.Range }

// NameError reports an unknown identifier at its use site.
type NameError struct {
	Range *TextRange
	Name  string
}

func (e *NameError) Error() string {
	return format(e.Range, fmt.Sprintf("Variable or function not defined: %s", e.Name))
}

func (e *NameError) Location() *TextRange { return e.Range }

// TypeError reports an unsupported operand or argument combination.
type TypeError struct {
	Range *TextRange
	Text  string
}

func (e *TypeError) Error() string     { return format(e.Range, e.Text) }
func (e *TypeError) Location() *TextRange { return e.Range }

// MotionError covers unplannable motions, tool conflicts, queue
// overflow and planner failures.
type MotionError struct {
	Range *TextRange
	Text  string
}

func (e *MotionError) Error() string     { return format(e.Range, e.Text) }
func (e *MotionError) Location() *TextRange { return e.Range }

// NotPlannableError is raised when plan-only execution encounters a
// forbidden side effect.
type NotPlannableError struct {
	Range *TextRange
	Text  string
}

func (e *NotPlannableError) Error() string     { return format(e.Range, e.Text) }
func (e *NotPlannableError) Location() *TextRange { return e.Range }

// WrongRobotError: no active robot, unknown robot, or a mis-scoped
// robot change.
type WrongRobotError struct {
	Range *TextRange
	Text  string
}

func (e *WrongRobotError) Error() string     { return format(e.Range, e.Text) }
func (e *WrongRobotError) Location() *TextRange { return e.Range }

// NestedSyncError: sync inside a robot context.
type NestedSyncError struct {
	Range *TextRange
}

func (e *NestedSyncError) Error() string {
	return format(e.Range, "Explicit and implicit sync within the robot context is not supported")
}

func (e *NestedSyncError) Location() *TextRange { return e.Range }

// ConfigurationError: the robot cell lacks a precondition, e.g. the
// pose is unknown because the robot has never moved.
type ConfigurationError struct {
	Range *TextRange
	Text  string
}

func (e *ConfigurationError) Error() string {
	msg := e.Text
	if msg == "" {
		msg = "Robot cell is not sufficiently configured"
	}
	return format(e.Range, msg)
}

func (e *ConfigurationError) Location() *TextRange { return e.Range }

// UserError is raised by the raise statement.
type UserError struct {
	Range *TextRange
	Value string
}

func (e *UserError) Error() string {
	return format(e.Range, fmt.Sprintf("User defined error: '%s'", e.Value))
}

func (e *UserError) Location() *TextRange { return e.Range }

// GenericRuntimeError covers everything not described by a more
// specific error.
type GenericRuntimeError struct {
	Range *TextRange
	Text  string
}

func (e *GenericRuntimeError) Error() string     { return format(e.Range, e.Text) }
func (e *GenericRuntimeError) Location() *TextRange { return e.Range }
