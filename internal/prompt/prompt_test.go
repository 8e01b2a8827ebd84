package prompt

import (
	"bufio"
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withPasswords(t *testing.T, answers ...string) {
	t.Helper()
	old := readPassword
	t.Cleanup(func() { readPassword = old })
	i := 0
	readPassword = func(int) ([]byte, error) {
		if i >= len(answers) {
			return nil, errors.New("no more input")
		}
		a := answers[i]
		i++
		return []byte(a), nil
	}
}

func TestLine(t *testing.T) {
	var out bytes.Buffer
	got, err := Line(bufio.NewReader(strings.NewReader("  a@x.com \n")), &out, "Email")
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", got)
	assert.Equal(t, "Email: ", out.String())
}

func TestLine_EOFAfterInput(t *testing.T) {
	var out bytes.Buffer
	got, err := Line(bufio.NewReader(strings.NewReader("lastline")), &out, "Email")
	require.NoError(t, err)
	assert.Equal(t, "lastline", got)
}

func TestLine_EmptyInput(t *testing.T) {
	var out bytes.Buffer
	_, err := Line(bufio.NewReader(strings.NewReader("")), &out, "Email")
	assert.Error(t, err)
}

func TestPassword_Error(t *testing.T) {
	withPasswords(t)
	var out bytes.Buffer
	_, err := Password(&out, "Password")
	assert.Error(t, err)
}

func TestNewPassword_Match(t *testing.T) {
	withPasswords(t, "Str0ng!pw", "Str0ng!pw")
	var out bytes.Buffer

	pw, err := NewPassword(&out)
	require.NoError(t, err)
	assert.Equal(t, "Str0ng!pw", pw)
	assert.Contains(t, out.String(), "Repeat password")
}

func TestNewPassword_Mismatch(t *testing.T) {
	withPasswords(t, "Str0ng!pw", "Str0ng!px")
	var out bytes.Buffer

	_, err := NewPassword(&out)
	assert.ErrorIs(t, err, ErrPasswordMismatch)
}
