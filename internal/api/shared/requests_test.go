package shared

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type errorReader struct{}

func (errorReader) Read([]byte) (int, error) {
	return 0, io.ErrUnexpectedEOF
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
		Age  int    `json:"age"`
	}

	tests := []struct {
		name    string
		body    io.Reader
		limit   int64
		wantErr error
		errText string
	}{
		{name: "valid json", body: strings.NewReader(`{"name":"ring","age":3}`)},
		{name: "invalid json", body: strings.NewReader(`{"name":"ring",}`), errText: "invalid character"},
		{name: "empty body", body: strings.NewReader(""), errText: "EOF"},
		{name: "read error", body: errorReader{}, errText: "unexpected EOF"},
		{
			name:    "over the limit",
			body:    strings.NewReader(`{"name":"` + strings.Repeat("a", 100) + `"}`),
			limit:   32,
			wantErr: ErrBodyTooLarge,
		},
		{name: "under the limit", body: strings.NewReader(`{"name":"a"}`), limit: 32},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", tc.body)
			var got payload
			err := DecodeJSON(httptest.NewRecorder(), req, &got, tc.limit)

			switch {
			case tc.wantErr != nil:
				assert.ErrorIs(t, err, tc.wantErr)
			case tc.errText != "":
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.errText)
			default:
				assert.NoError(t, err)
			}
		})
	}
}

type selfChecked struct {
	Name string `json:"name" validate:"required"`
}

func (s selfChecked) Validate() error {
	if s.Name == "invalid" {
		return errors.New("name is reserved")
	}
	return nil
}

func TestValidateRequest(t *testing.T) {
	t.Run("struct tags use json names", func(t *testing.T) {
		err := ValidateRequest(&selfChecked{})
		var verrs validator.ValidationErrors
		require.ErrorAs(t, err, &verrs)
		assert.Equal(t, "name", verrs[0].Field())
		assert.Equal(t, "required", verrs[0].Tag())
	})

	t.Run("custom validation runs after tags", func(t *testing.T) {
		assert.EqualError(t, ValidateRequest(&selfChecked{Name: "invalid"}), "name is reserved")
	})

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, ValidateRequest(&selfChecked{Name: "ring"}))
		assert.NoError(t, ValidateRequest(&struct{ Name string }{"x"}))
	})
}
