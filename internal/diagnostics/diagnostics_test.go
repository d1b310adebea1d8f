package diagnostics

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/funvibe/tyinfer/internal/ast"
)

func TestDiagnosticError(t *testing.T) {
	loc := ast.Location{File: "m.py", Line: 3, Column: 5}
	d := NewError(ErrT002, loc, "Int vs Text").WithRelated(ast.Location{File: "m.py", Line: 1, Column: 1}, "first use")
	assert.Equal(t, "m.py:3:5: T002 type mismatch: Int vs Text", d.Error())
	assert.False(t, d.IsWarning())
	require.Len(t, d.Related, 1)

	w := NewWarning(ErrT003, loc, "x")
	assert.True(t, w.IsWarning())
	assert.Equal(t, "warning", w.Severity.String())
}

func TestRender(t *testing.T) {
	var buf bytes.Buffer
	diags := []*DiagnosticError{
		NewError(ErrT002, ast.Location{File: "m.py", Line: 4, Column: 1}, "Text vs Int").
			WithRelated(ast.Location{File: "m.py", Line: 3, Column: 1}, "pinned by call"),
		NewWarning(ErrT003, ast.Location{File: "m.py", Line: 9, Column: 2}, "y has no concrete type"),
	}
	require.NoError(t, Render(&buf, diags))

	want := "m.py:4:1: error T002: Text vs Int\n" +
		"  related: m.py:3:1 (pinned by call)\n" +
		"m.py:9:2: warning T003: y has no concrete type\n" +
		"1 error, 1 warning\n"
	assert.Equal(t, want, buf.String())
}

func TestSummary(t *testing.T) {
	assert.Equal(t, "0 errors, 0 warnings", Summary(0, 0))
	assert.Equal(t, "1,200 errors, 2 warnings", Summary(1200, 2))
}

func TestUnknownCodeTitle(t *testing.T) {
	assert.Equal(t, "error", ErrorCode("X999").Title())
	assert.Equal(t, "join conflict", ErrT006.Title())
}
