package sheetorm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTranslateBrackets(t *testing.T) {
	s := builderSchema()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "every occurrence replaced, nothing else altered",
			input: "select [Age] where [Age] > 10",
			want:  "select B where B > 10",
		},
		{
			name:  "multiple headers",
			input: "select [id], [Name] order by [Age] desc",
			want:  "select A, C order by B desc",
		},
		{
			name:  "no brackets passes through",
			input: "select A limit 3",
			want:  "select A limit 3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := translateBrackets(s, tt.input)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestTranslateBracketsUnknownHeaderFails(t *testing.T) {
	s := builderSchema()

	// Unlike the structured builder, a free-form query fails loudly.
	out, err := translateBrackets(s, "select [Bogus] where [Age] > 10")
	require.ErrorIs(t, err, ErrUnknownHeader)
	require.Contains(t, err.Error(), "Bogus")
	require.Empty(t, out)
}

func TestTranslateBracketsWithoutSchemaFails(t *testing.T) {
	_, err := translateBrackets(nil, "select [Age]")
	require.ErrorIs(t, err, ErrNoSchema)

	_, err = translateBrackets(newSchema(nil, "id"), "select [Age]")
	require.ErrorIs(t, err, ErrNoSchema)
}
