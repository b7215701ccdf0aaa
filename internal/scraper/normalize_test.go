package scraper

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAfterColon(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{"Qtde.: 2", "2"},
		{"CNPJ: 12.345.678/0001-90", "12.345.678/0001-90"},
		{"Vl. Unit.:   3,49", "3,49"},
		{"a: b: c", "c"},
		{"  sem rotulo  ", "sem rotulo"},
		{"", ""},
		{"fim:", ""},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, afterColon(tc.in), "input %q", tc.in)
	}
}

func TestParseAmount(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want float64
	}{
		{"R$ 1.234,56", 1234.56},
		{"3,49", 3.49},
		{"2", 2},
		{"0,418", 0.418},
		{"1.000.000,00", 1000000},
		{"12.5", 12.5},
		{"", 0},
		{"abc", 0},
		{"R$", 0},
		{"..,,", 0},
	}
	for _, tc := range cases {
		require.InDelta(t, tc.want, parseAmount(tc.in), 1e-9, "input %q", tc.in)
	}
}

func TestNormalizeTaxID(t *testing.T) {
	t.Parallel()

	require.Equal(t, "12345678000190", normalizeTaxID("CNPJ: 12.345.678/0001-90"))
	require.Equal(t, "12345678901", normalizeTaxID("CPF: 123.456.789-01"))
	require.Equal(t, "", normalizeTaxID(""))
}

func TestStateFromURL(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{"https://www.nfce.fazenda.sp.gov.br/consulta?p=35240", "SP"},
		{"https://nfce.fazenda.MG.gov.br/portalnfce", "MG"},
		{"https://sat.sef.sc.gov.br/nfce/consulta", "SC"},
		{"https://example.com/nota", ""},
		{"", ""},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, stateFromURL(tc.in), "input %q", tc.in)
	}
}
