package errs

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPredicates(t *testing.T) {
	tests := []struct {
		name string
		err  error
		is   func(error) bool
	}{
		{"configuration", New(ErrKindConfiguration, "missing database"), IsConfiguration},
		{"format", New(ErrKindFormat, "placeholder mismatch"), IsFormat},
		{"integrity", New(ErrKindIntegrity, "duplicate"), IsIntegrity},
		{"database", New(ErrKindDatabase, "table unknown"), IsDatabase},
		{"schema", New(ErrKindSchema, "no mapping"), IsSchema},
		{"timeout", Wrap(ErrKindTimeout, "deadline", context.DeadlineExceeded), IsTimeout},
		{"invalid input", New(ErrKindInvalidInput, "bad lookup"), IsInvalidInput},
		{"wrapped", fmt.Errorf("outer: %w", New(ErrKindIntegrity, "dup")), IsIntegrity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.is(tt.err))
		})
	}

	assert.False(t, IsIntegrity(errors.New("plain")))
	assert.Equal(t, ErrKindUnknown, KindOf(errors.New("plain")))
}

func TestError_Unwrap(t *testing.T) {
	cause := context.Canceled
	err := Wrap(ErrKindTimeout, "query cancelled", cause)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestError_Message(t *testing.T) {
	err := New(ErrKindIntegrity, "violation of PRIMARY or UNIQUE KEY constraint").
		WithCode(-803).
		WithQuery("INSERT INTO t VALUES (?)", []any{1})

	assert.Equal(t,
		"[integrity -803] violation of PRIMARY or UNIQUE KEY constraint (query: INSERT INTO t VALUES (?), params: [1])",
		err.Error())

	plain := Wrap(ErrKindDatabase, "exec failed", errors.New("boom"))
	assert.Equal(t, "[database] exec failed: boom", plain.Error())
}

func TestError_Payload(t *testing.T) {
	err := New(ErrKindDatabase, "Table unknown").WithCode(-204).WithQuery("SELECT * FROM x", nil)

	p := err.Payload()
	assert.Equal(t, "database", p.ErrorKind)
	assert.Equal(t, -204, p.Code)
	assert.Equal(t, "Table unknown", p.Message)
	assert.Equal(t, "SELECT * FROM x", p.Query)
	assert.NotNil(t, p.Params)
	assert.Empty(t, p.Params)
}
