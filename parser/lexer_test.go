package parser

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// collect lexes the whole input into token types
func collect(t *testing.T, input string) []TokenType {
	t.Helper()
	l := NewLexer(input)
	var kinds []TokenType
	for {
		tok, err := l.NextToken()
		require.NoError(t, err)
		kinds = append(kinds, tok.Type)
		if tok.Type == TOKEN_EOF {
			return kinds
		}
	}
}

func TestLexerSimpleStatement(t *testing.T) {
	kinds := collect(t, "a = 1")
	require.Equal(t, []TokenType{
		TOKEN_IDENTIFIER, TOKEN_ASSIGN, TOKEN_INT, TOKEN_NEWLINE, TOKEN_EOF,
	}, kinds)
}

func TestLexerIndentDedent(t *testing.T) {
	kinds := collect(t, "if a:\n    b = 1\nc = 2\n")
	require.Equal(t, []TokenType{
		TOKEN_IF, TOKEN_IDENTIFIER, TOKEN_COLON, TOKEN_NEWLINE,
		TOKEN_INDENT, TOKEN_IDENTIFIER, TOKEN_ASSIGN, TOKEN_INT, TOKEN_NEWLINE,
		TOKEN_DEDENT, TOKEN_IDENTIFIER, TOKEN_ASSIGN, TOKEN_INT, TOKEN_NEWLINE,
		TOKEN_EOF,
	}, kinds)
}

func TestLexerTabExpandsLikeSpaces(t *testing.T) {
	// a tab expands to the next multiple of 8, so both inputs lex the
	// same
	withSpaces := collect(t, "a\n        b")
	withTab := collect(t, "a\n\tb")
	require.Equal(t, withSpaces, withTab)
}

func TestLexerFinalDedentsAtEOF(t *testing.T) {
	kinds := collect(t, "while a:\n  if b:\n    c = 1")
	require.Equal(t, TOKEN_EOF, kinds[len(kinds)-1])
	require.Equal(t, TOKEN_DEDENT, kinds[len(kinds)-2])
	require.Equal(t, TOKEN_DEDENT, kinds[len(kinds)-3])
	require.Equal(t, TOKEN_NEWLINE, kinds[len(kinds)-4])
}

func TestLexerBracketsSuppressNewlines(t *testing.T) {
	kinds := collect(t, "a = (1,\n     2,\n     3)")
	require.Equal(t, []TokenType{
		TOKEN_IDENTIFIER, TOKEN_ASSIGN,
		TOKEN_LPAREN, TOKEN_INT, TOKEN_COMMA, TOKEN_INT, TOKEN_COMMA, TOKEN_INT, TOKEN_RPAREN,
		TOKEN_NEWLINE, TOKEN_EOF,
	}, kinds)
}

func TestLexerCommentsAndBlankLines(t *testing.T) {
	kinds := collect(t, "# header\na = 1  # trailing\n\n   # indented comment\nb = 2\n")
	require.Equal(t, []TokenType{
		TOKEN_IDENTIFIER, TOKEN_ASSIGN, TOKEN_INT, TOKEN_NEWLINE,
		TOKEN_IDENTIFIER, TOKEN_ASSIGN, TOKEN_INT, TOKEN_NEWLINE,
		TOKEN_EOF,
	}, kinds)
}

func TestLexerOperators(t *testing.T) {
	tests := []struct {
		input string
		want  TokenType
	}{
		{"::", TOKEN_COLONCOLON},
		{"~", TOKEN_TILDE},
		{"..", TOKEN_RANGE},
		{"..<", TOKEN_RANGE_LT},
		{"...", TOKEN_ELLIPSIS},
		{">-->", TOKEN_PATHARROW},
		{"<=", TOKEN_LE},
		{">=", TOKEN_GE},
		{"==", TOKEN_EQ},
		{"!=", TOKEN_NE},
		{"|", TOKEN_PIPE},
	}
	for _, tt := range tests {
		l := NewLexer(tt.input)
		tok, err := l.NextToken()
		require.NoError(t, err, tt.input)
		require.Equal(t, tt.want, tok.Type, tt.input)
	}
}

func TestLexerIntRange(t *testing.T) {
	kinds := collect(t, "for i in 3..5: pass")
	require.Contains(t, kinds, TOKEN_RANGE)
	require.NotContains(t, kinds, TOKEN_FLOAT)
}

func TestLexerNumbers(t *testing.T) {
	l := NewLexer("42 3.14 1e3 2.5e-2 pi")
	wants := []struct {
		kind  TokenType
		value string
	}{
		{TOKEN_INT, "42"},
		{TOKEN_FLOAT, "3.14"},
		{TOKEN_FLOAT, "1e3"},
		{TOKEN_FLOAT, "2.5e-2"},
		{TOKEN_FLOAT, "pi"},
	}
	for _, want := range wants {
		tok, err := l.NextToken()
		require.NoError(t, err)
		require.Equal(t, want.kind, tok.Type)
		require.Equal(t, want.value, tok.Value)
	}
}

func TestLexerString(t *testing.T) {
	l := NewLexer(`a = "hello world"`)
	var tok Token
	var err error
	for i := 0; i < 3; i++ {
		tok, err = l.NextToken()
		require.NoError(t, err)
	}
	require.Equal(t, TOKEN_STRING, tok.Type)
	require.Equal(t, "hello world", tok.Literal)
}

func TestLexerUnterminatedString(t *testing.T) {
	l := NewLexer(`a = "oops`)
	var err error
	for i := 0; i < 3; i++ {
		_, err = l.NextToken()
	}
	require.Error(t, err)
}

func TestLexerBadDedent(t *testing.T) {
	l := NewLexer("if a:\n    b = 1\n  c = 2\n")
	var err error
	for i := 0; i < 20 && err == nil; i++ {
		var tok Token
		tok, err = l.NextToken()
		if tok.Type == TOKEN_EOF {
			break
		}
	}
	require.Error(t, err)
}

func TestLexerPositions(t *testing.T) {
	l := NewLexer("a = 1\nbb = 2\n")
	tok, err := l.NextToken()
	require.NoError(t, err)
	require.Equal(t, 1, tok.Position.Line)
	for tok.Type != TOKEN_NEWLINE {
		tok, err = l.NextToken()
		require.NoError(t, err)
	}
	tok, err = l.NextToken()
	require.NoError(t, err)
	require.Equal(t, TOKEN_IDENTIFIER, tok.Type)
	require.Equal(t, "bb", tok.Value)
	require.Equal(t, 2, tok.Position.Line)
}
