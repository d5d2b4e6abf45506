// File: internal/validator/sanitize_test.go
package validator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitize_WrapsDefaultExport(t *testing.T) {
	source := `function Gauge(props) {
  return (<div>{props.value}</div>);
}

export default Gauge;
`
	out := Sanitize(source)

	assert.True(t, strings.HasPrefix(out, SanitizeMarker))
	// The original definition survives verbatim.
	assert.Contains(t, out, "function Gauge(props)")
	// The boundary takes over the default export and delegates to the user
	// component.
	assert.Contains(t, out, "export default "+boundaryName)
	assert.Contains(t, out, "const "+targetName+" = Gauge;")
	assert.Contains(t, out, "<"+targetName+" {...props} />")
	assert.Contains(t, out, boundaryName+".__panelforgeBoundary = true;")
	// The old default-export clause is gone.
	assert.NotContains(t, out, "export default Gauge")
}

func TestSanitize_Idempotent(t *testing.T) {
	source := `function Gauge(props) {
  return (<div>{props.value}</div>);
}

export default Gauge;
`
	once := Sanitize(source)
	twice := Sanitize(once)
	assert.Equal(t, once, twice)
	assert.Equal(t, 1, strings.Count(twice, "export default "+boundaryName))
}

func TestDemoteDefaultExport_Forms(t *testing.T) {
	cases := []struct {
		name      string
		source    string
		wantInner string
	}{
		{
			name:      "export default function",
			source:    "export default function Chart(props) { return (<div />); }",
			wantInner: "Chart",
		},
		{
			name:      "export default class",
			source:    "export default class Chart extends Component { render() { return (<div />); } }",
			wantInner: "Chart",
		},
		{
			name:      "export default identifier",
			source:    "const Chart = (props) => (<div />);\nexport default Chart;",
			wantInner: "Chart",
		},
		{
			name:      "named re-export as default",
			source:    "function Chart(props) { return (<div />); }\nexport { Chart as default };",
			wantInner: "Chart",
		},
		{
			name:      "anonymous default expression",
			source:    "export default (props) => (<div>{props.x}</div>);",
			wantInner: "__PanelforgeInner",
		},
		{
			name:      "no default export falls back to first declaration",
			source:    "function Chart(props) { return (<div />); }",
			wantInner: "Chart",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			body, inner := demoteDefaultExport(tc.source)
			assert.Equal(t, tc.wantInner, inner)
			assert.NotContains(t, body, "export default")
		})
	}
}

func TestSanitize_AnonymousDefaultGetsBinding(t *testing.T) {
	source := "export default (props) => (<div>{props.x}</div>);"
	out := Sanitize(source)

	require.Contains(t, out, "const __PanelforgeInner = (props)")
	assert.Contains(t, out, "const "+targetName+" = __PanelforgeInner;")
	assert.Contains(t, out, "<"+targetName+" {...props} />")
}

func TestSanitize_LowercaseComponentRendersThroughAlias(t *testing.T) {
	source := `function card(props) {
  return (<div className="content">{props.title}</div>);
}

export default card;
`
	out := Sanitize(source)

	// A lowercase identifier used directly as a JSX tag would be read as an
	// intrinsic DOM element; the boundary must go through the alias instead.
	assert.Contains(t, out, "const "+targetName+" = card;")
	assert.Contains(t, out, "<"+targetName+" {...props} />")
	assert.NotContains(t, out, "<card")
}
