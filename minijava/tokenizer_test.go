package minijava

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenizer_Tokenize(t *testing.T) {
	tokenizer := &Tokenizer{}
	tokens, err := tokenizer.Tokenize(strings.NewReader(`
	class Foo {
		// a comment
		public int bar(int n) {
			/* another
			   comment */
			return n && 10;
		}
	}
	`))
	assert.Nil(t, err)
	assert.NotNil(t, tokens)
	expected := []TokenType{
		ClassTP, IdentifierTP, LeftBraceTP,
		PublicTP, IntTP, IdentifierTP, LeftParenthesesTP, IntTP, IdentifierTP, RightParenthesesTP, LeftBraceTP,
		ReturnTP, IdentifierTP, AndTP, IntegerTP, SemiColonTP,
		RightBraceTP, RightBraceTP,
	}
	assert.Equal(t, len(expected), len(tokens))
	for i, token := range tokens {
		assert.Equal(t, expected[i], token.tp)
	}
}

func TestTokenizer_Lines(t *testing.T) {
	tokenizer := &Tokenizer{}
	tokens, err := tokenizer.Tokenize(strings.NewReader("class\nFoo\n{\n}\n"))
	assert.Nil(t, err)
	assert.Equal(t, 4, len(tokens))
	for i, token := range tokens {
		assert.Equal(t, i+1, token.line)
	}
}

func TestTokenizer_Errors(t *testing.T) {
	testDatas := []struct {
		data      string
		expectErr bool
	}{
		{data: "a && b", expectErr: false},
		{data: "a & b", expectErr: true},
		{data: "123abc", expectErr: true},
		{data: "/* never closed", expectErr: true},
		{data: "x = 10;", expectErr: false},
	}
	for _, testData := range testDatas {
		tokenizer := &Tokenizer{}
		_, err := tokenizer.Tokenize(strings.NewReader(testData.data))
		if testData.expectErr {
			assert.NotNil(t, err, testData.data)
		} else {
			assert.Nil(t, err, testData.data)
		}
	}
}
