package engine

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/flexiq/internal/ir"
)

func TestErrorFormat(t *testing.T) {
	err := NewUnsupportedOperationError("faktura-vydana", "only custom relations can be modified")
	assert.Equal(t, "UNSUPPORTED_OPERATION: only custom relations can be modified (resource=faktura-vydana)", err.Error())

	err = &Error{Code: ErrCodeDateConversion, Message: "bad"}
	assert.Equal(t, "DATE_CONVERSION: bad", err.Error())
}

func TestIsHelpersUnwrap(t *testing.T) {
	wrapped := fmt.Errorf("insert adresar: %w", NewUnsupportedOperationError("adresar", "x"))
	assert.True(t, IsUnsupportedOperation(wrapped))
	assert.False(t, IsDateConversion(wrapped))

	dateErr := fmt.Errorf("unmap: %w", NewDateConversionError("datVyst", "date", "year 10000 out of range"))
	assert.True(t, IsDateConversion(dateErr))
	assert.False(t, IsUnsupportedOperation(dateErr))

	assert.False(t, IsUnsupportedOperation(nil))
}

func TestRemoteErrorMessage(t *testing.T) {
	tests := []struct {
		name    string
		payload ir.Value
		want    string
	}{
		{
			name:    "message attribute",
			payload: ir.NewObject(ir.O("message", ir.String("Záznam nenalezen"))),
			want:    "remote error: HTTP 400 on PUT adresar.json: Záznam nenalezen",
		},
		{
			name: "first result error",
			payload: ir.NewObject(ir.O("results", ir.NewList(
				ir.NewObject(ir.O("errors", ir.NewList(
					ir.NewObject(ir.O("message", ir.String("Kód musí být unikátní"))),
				))),
			))),
			want: "remote error: HTTP 400 on PUT adresar.json: Kód musí být unikátní",
		},
		{
			name:    "plain text",
			payload: ir.String("Bad Request"),
			want:    "remote error: HTTP 400 on PUT adresar.json: Bad Request",
		},
		{
			name:    "no message",
			payload: ir.Null{},
			want:    "remote error: HTTP 400 on PUT adresar.json",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := &RemoteError{Status: 400, Method: "PUT", URL: "adresar.json", Payload: tt.payload}
			assert.Equal(t, tt.want, err.Error())
		})
	}
}

func TestIsRemoteError(t *testing.T) {
	status, ok := IsRemoteError(fmt.Errorf("x: %w", &RemoteError{Status: 409}))
	assert.True(t, ok)
	assert.Equal(t, 409, status)

	_, ok = IsRemoteError(fmt.Errorf("plain"))
	assert.False(t, ok)
}
