package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckDigit(t *testing.T) {
	assert.Equal(t, 5, CheckDigit("171003406"))
	assert.Equal(t, 6, CheckDigit("092668785"))
}

func TestRepairID(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"171234567", "0171234567"},
		{"1710034065.0", "1710034065"},
		{"171OO34065", "1710034065"},
		{"17-1003406-5", "1710034065"},
		{" 1710 034065 ", "1710034065"},
		{"012345678", "012345678"},
		{"S/N", ""},
		{"NO TIENE", ""},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, RepairID(tt.input))
		})
	}
}

func TestCheckID_Strict(t *testing.T) {
	rules := Strict().ID

	valid := CheckID("1710034065", rules)
	assert.True(t, valid.OK)
	assert.Equal(t, "1710034065", valid.Accepted)

	// Flipping the check digit fails the checksum.
	assert.False(t, CheckID("1710034064", rules).OK)
	assert.True(t, CheckID("1710034064", rules).ChecksumFailed)

	assert.True(t, CheckID("0926687856", rules).OK)
	assert.False(t, CheckID("2510034065", rules).OK, "province above 24")
	assert.False(t, CheckID("0010034065", rules).OK, "province zero")
	assert.False(t, CheckID("1770034065", rules).OK, "third digit 7")
	assert.False(t, CheckID("171003406", rules).OK, "nine digits")
	assert.False(t, CheckID("1710034065.0", rules).OK, "float artifact not repaired")
	assert.False(t, CheckID("17100340651", rules).OK, "eleven digits")
}

func TestCheckID_Flexible(t *testing.T) {
	rules := Flexible().ID

	res := CheckID("171234567", rules)
	assert.True(t, res.OK)
	assert.Equal(t, "0171234567", res.Accepted)

	res = CheckID("1710034064", rules)
	assert.True(t, res.OK, "checksum failure is advisory")
	assert.True(t, res.ChecksumFailed)

	res = CheckID("1790012345001", rules)
	assert.True(t, res.OK, "RUC truncated")
	assert.Equal(t, "1790012345", res.Accepted)

	assert.True(t, CheckID("2810034065", rules).OK, "province up to 30")
	assert.True(t, CheckID("9512345678", rules).OK, "province 90s")
	assert.False(t, CheckID("4512345678", rules).OK, "province 45")
	assert.False(t, CheckID("12345", rules).OK, "too short")
	assert.False(t, CheckID("012345678", rules).OK, "nine digits with leading zero")

	res = CheckID("SIN CEDULA", rules)
	assert.True(t, res.OK, "placeholder means no id")
	assert.Empty(t, res.Accepted)
	assert.False(t, CheckID("SIN CEDULA", Strict().ID).OK)
}
