package utils

import (
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	d, err := ParseAmount(" 1200 ")
	require.NoError(t, err)
	require.True(t, d.Equal(sdkmath.LegacyNewDec(1200)))

	d, err = ParseAmount("99.5")
	require.NoError(t, err)
	require.True(t, d.Equal(sdkmath.LegacyNewDecWithPrec(995, 1)))

	_, err = ParseAmount("")
	require.ErrorIs(t, err, ErrAmountEmpty)

	_, err = ParseAmount("twelve")
	require.ErrorIs(t, err, ErrConversionFailed)
}

func TestFormatAmount(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"100", "100.00"},
		{"495", "495.00"},
		{"333.333333333333333333", "333.33"},
		{"2.505", "2.51"},
		{"2.515", "2.52"},
		{"0.125", "0.13"},
		{"-0.125", "-0.13"},
		{"2.50499", "2.50"},
		{"-5", "-5.00"},
		{"-0.004", "0.00"},
		{"0.07", "0.07"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, FormatAmount(sdkmath.LegacyMustNewDecFromStr(tc.in)), tc.in)
	}
	require.Equal(t, "0.00", FormatAmount(sdkmath.LegacyDec{}))
}

func TestFormatFixedRejectsBadPrecision(t *testing.T) {
	_, err := FormatFixed(sdkmath.LegacyOneDec(), 19)
	require.ErrorIs(t, err, ErrInvalidPrecision)

	s, err := FormatFixed(sdkmath.LegacyMustNewDecFromStr("12.6"), 0)
	require.NoError(t, err)
	require.Equal(t, "13", s)
}

func TestFormatPlain(t *testing.T) {
	require.Equal(t, "1200", FormatPlain(sdkmath.LegacyNewDec(1200)))
	require.Equal(t, "99.5", FormatPlain(sdkmath.LegacyMustNewDecFromStr("99.50")))
	require.Equal(t, "0", FormatPlain(sdkmath.LegacyZeroDec()))
	require.Equal(t, "-5", FormatPlain(sdkmath.LegacyNewDec(-5)))
	require.Equal(t, "1200", JSONNumber(sdkmath.LegacyNewDec(1200)).String())
}
