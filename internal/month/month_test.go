package month

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/geostats-cli/internal/normalize"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected string
		ok       bool
	}{
		{name: "iso date", input: "2023-07-15", expected: "julio", ok: true},
		{name: "three letter prefix", input: "JUL", expected: "julio", ok: true},
		{name: "month number", input: "7", expected: "julio", ok: true},
		{name: "empty", input: "", ok: false},
		{name: "nil", input: nil, ok: false},
		{name: "full name with accent noise", input: "  Septiembre ", expected: "septiembre", ok: true},
		{name: "name with year", input: "Marzo 2024", expected: "marzo", ok: true},
		{name: "padded number", input: "03", expected: "marzo", ok: true},
		{name: "json number", input: float64(12), expected: "diciembre", ok: true},
		{name: "number out of range", input: "13", ok: false},
		{name: "zero", input: "0", ok: false},
		{name: "slash iso", input: "2024/02/29", expected: "febrero", ok: true},
		{name: "day first slash", input: "05/11/2023", expected: "noviembre", ok: true},
		{name: "day first dash single digits", input: "5-1-2023", expected: "enero", ok: true},
		{name: "with time", input: "2023-10-01 08:30:00", expected: "octubre", ok: true},
		{name: "day first with time", input: "31/08/2023 23:59:59", expected: "agosto", ok: true},
		{name: "iso with zulu", input: "2023-04-09T10:20:30Z", expected: "abril", ok: true},
		{name: "iso with fraction and offset", input: "2023-06-01T00:00:00.123-06:00", expected: "junio", ok: true},
		{name: "iso minutes only", input: "2023-05-20T14:05", expected: "mayo", ok: true},
		{name: "garbage", input: "n/a", ok: false},
		{name: "unknown word", input: "pendiente", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Parse(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestOrDefault(t *testing.T) {
	assert.Equal(t, "enero", OrDefault("ene"))
	assert.Equal(t, normalize.NoMonth, OrDefault("sin fecha"))
	assert.Equal(t, normalize.NoMonth, OrDefault(nil))
}

func TestName(t *testing.T) {
	assert.Equal(t, "enero", Name(1))
	assert.Equal(t, "diciembre", Name(12))
}
