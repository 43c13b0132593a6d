package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func sampleTemplate() *Template {
	t := New("sample")
	t.Parameters["Targets"] = StringParameter("targets", "")
	t.Parameters["Required"] = Parameter{Type: "String"}
	t.Resources["Role"] = Resource{Type: "AWS::IAM::Role"}
	t.Resources["Fn"] = Resource{
		Type:      "AWS::Lambda::Function",
		DependsOn: []string{"Role"},
		Properties: map[string]any{
			"Role": GetAtt("Role", "Arn"),
			"Environment": map[string]any{
				"Variables": map[string]any{"targets": Ref("Targets")},
			},
			"Layers": []any{Ref("AWS::NoValue")},
		},
	}
	t.Outputs["FunctionName"] = Output{Value: Ref("Fn")}
	return t
}

func TestMarshal_JSON(t *testing.T) {
	data, err := sampleTemplate().Marshal(FormatJSON)
	require.NoError(t, err)

	body := string(data)
	assert.Equal(t, FormatVersion, gjson.Get(body, "AWSTemplateFormatVersion").String())
	assert.True(t, gjson.Get(body, "Parameters.Targets.Default").Exists(), "empty default must be emitted")
	assert.Equal(t, "", gjson.Get(body, "Parameters.Targets.Default").String())
	assert.False(t, gjson.Get(body, "Parameters.Required.Default").Exists())
	assert.Equal(t, "Targets", gjson.Get(body, "Resources.Fn.Properties.Environment.Variables.targets.Ref").String())
	att := gjson.Get(body, `Resources.Fn.Properties.Role.Fn::GetAtt`).Array()
	require.Len(t, att, 2)
	assert.Equal(t, "Role", att[0].String())
	assert.Equal(t, "Arn", att[1].String())
}

func TestMarshal_YAML(t *testing.T) {
	data, err := sampleTemplate().Marshal(FormatYAML)
	require.NoError(t, err)

	body := string(data)
	assert.Contains(t, body, "AWSTemplateFormatVersion:")
	assert.Contains(t, body, "Ref: Targets")
	assert.Contains(t, body, "Fn::GetAtt")
}

func TestMarshal_Deterministic(t *testing.T) {
	a, err := sampleTemplate().Marshal(FormatYAML)
	require.NoError(t, err)
	b, err := sampleTemplate().Marshal(FormatYAML)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestMarshal_UnknownFormat(t *testing.T) {
	_, err := sampleTemplate().Marshal("toml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "toml")
}

func TestParameterValues_DefaultsAndOverrides(t *testing.T) {
	values, err := sampleTemplate().ParameterValues(map[string]string{"Required": "x"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"Targets": "", "Required": "x"}, values)
}

func TestParameterValues_LiteralPassThrough(t *testing.T) {
	in := " i-0123 ,i-0456,, "
	values, err := sampleTemplate().ParameterValues(map[string]string{"Targets": in, "Required": "x"})
	require.NoError(t, err)
	assert.Equal(t, in, values["Targets"])
}

func TestParameterValues_Problems(t *testing.T) {
	_, err := sampleTemplate().ParameterValues(map[string]string{"Bogus": "1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown parameter "Bogus"`)
	assert.Contains(t, err.Error(), `parameter "Required" has no default`)
}

func TestResolve_ReplacesParameterRefsOnly(t *testing.T) {
	tpl := sampleTemplate()
	doc, err := tpl.Resolve(map[string]string{"Targets": "i-1,i-2", "Required": "x"})
	require.NoError(t, err)

	fn := doc["Resources"].(map[string]any)["Fn"].(map[string]any)
	props := fn["Properties"].(map[string]any)
	vars := props["Environment"].(map[string]any)["Variables"].(map[string]any)
	assert.Equal(t, "i-1,i-2", vars["targets"])

	// Resource and pseudo-parameter references are untouched.
	out := doc["Outputs"].(map[string]any)["FunctionName"].(map[string]any)
	assert.Equal(t, map[string]any{"Ref": "Fn"}, out["Value"])
	assert.Equal(t, []any{map[string]any{"Ref": "AWS::NoValue"}}, props["Layers"])
}

func TestResolve_MissingValue(t *testing.T) {
	_, err := sampleTemplate().Resolve(map[string]string{})
	require.Error(t, err)
}

func TestValidate_OK(t *testing.T) {
	assert.Empty(t, sampleTemplate().Validate())
}

func TestValidate_DanglingReferences(t *testing.T) {
	tpl := sampleTemplate()
	tpl.Resources["Rule"] = Resource{
		Type:      "AWS::Events::Rule",
		DependsOn: []string{"Missing"},
		Properties: map[string]any{
			"Targets": []any{map[string]any{"Arn": GetAtt("Ghost", "Arn")}},
			"Name":    Ref("Nowhere"),
		},
	}
	errs := tpl.Validate()
	require.Len(t, errs, 3)

	var joined string
	for _, e := range errs {
		joined += e.Error() + "\n"
	}
	assert.Contains(t, joined, `unknown resource "Missing"`)
	assert.Contains(t, joined, `undeclared resource "Ghost"`)
	assert.Contains(t, joined, `undeclared "Nowhere"`)
}
