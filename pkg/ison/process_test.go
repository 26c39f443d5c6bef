package ison

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gotest.tools/v3/golden"
)

// TestProcessGolden runs a handful of small documents through Processor
// and compares the rendered output against checked-in golden files,
// following the teacher's own golden-file convention for end-to-end
// output (vito-dang/tests/errors_test.go's golden.Assert usage).
func TestProcessGolden(t *testing.T) {
	cases := []struct {
		name string
		doc  string
	}{
		{
			name: "concat_local_ref",
			doc: `{
				"__locals__": {"name": "World"},
				"greeting": "$concat{Hello-,$name}"
			}`,
		},
		{
			name: "foreach_zip",
			doc: `{
				"labeled": "$!foreach{$L{item-%n%},n=$nums}",
				"__locals__": {"nums": [1, 2, 3]}
			}`,
		},
		{
			name: "reference_lambda_call",
			doc: `{
				"__func_globals__": {"greet": "$L{Hello %name%}"},
				"s": "${greet, name=World}"
			}`,
		},
		{
			name: "platform_skip",
			doc: `{
				"__platform__": {"PlanNine": {"__data__": {"should_not_appear": true}}},
				"stays": "unaffected"
			}`,
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			doc, err := DecodeJSON5(c.doc)
			require.NoError(t, err)

			proc := NewProcessor(FileLoader{})
			result, err := proc.Process(doc, ProcessOptions{StripVars: true})
			require.NoError(t, err)

			golden.Assert(t, ToString(result, 2)+"\n", c.name+".golden")
		})
	}
}

func TestProcessReportsUndefinedVariableWarning(t *testing.T) {
	doc, err := DecodeJSON5(`{"x": "$y"}`)
	require.NoError(t, err)

	proc := NewProcessor(FileLoader{})
	_, err = proc.Process(doc, ProcessOptions{})
	require.NoError(t, err)

	require.False(t, proc.FullyProcessed, "an unresolved reference must leave the document not fully processed")
	require.Len(t, proc.Warnings.Items(), 1)
	require.Equal(t, "y", proc.Warnings.Items()[0].Name)
}
