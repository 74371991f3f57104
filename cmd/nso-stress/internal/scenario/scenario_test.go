package scenario

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScenario(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const basicScenario = `
name = "vlan-service"
protocol = "restconf"

[defaults]
window = 10
requests = 1000

[params.id]
kind = "sequence-request"
start = 1

[params.vid]
kind = "random-value-request"
lower = 100
upper = 200

[[steps]]
do = "create /services/vlan=<<id>> --data '{\"vid\": <<vid>>}'"

[[steps]]
do = "read /services/vlan=<<id>>"
repeat = 2
`

func TestLoadBasicScenario(t *testing.T) {
	dir := t.TempDir()
	path := writeScenario(t, dir, "vlan.toml", basicScenario)

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "vlan-service", s.Name)
	assert.Equal(t, "restconf", s.Protocol)
	assert.Equal(t, uint(10), s.Defaults.Window)
	assert.Equal(t, uint(1000), s.Defaults.Requests)

	tasks, err := s.Tasks()
	require.NoError(t, err)
	require.Len(t, tasks, 3)
	assert.Equal(t, "create", tasks[0].Op)
	assert.Equal(t, "/services/vlan=<<id>>", tasks[0].Resource)
	assert.Equal(t, `{"vid": <<vid>>}`, tasks[0].Data)
	assert.Equal(t, "read", tasks[1].Op)
	assert.Equal(t, "read", tasks[2].Op)

	params, err := s.ParamSet()
	require.NoError(t, err)
	params.NextRequest()
	assert.Equal(t, "/services/vlan=1", params.Format(tasks[0].Resource))
}

func TestScenarioNameDefaultsToFileName(t *testing.T) {
	dir := t.TempDir()
	path := writeScenario(t, dir, "smoke.toml", "[[steps]]\ndo = \"read /x\"\n")

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "smoke", s.Name)
}

func TestUnknownKeysAreRejected(t *testing.T) {
	dir := t.TempDir()
	path := writeScenario(t, dir, "typo.toml", "reqeusts = 5\n[[steps]]\ndo = \"read /x\"\n")

	_, err := Load(path)
	require.Error(t, err)
}

func TestUnknownProtocolIsRejected(t *testing.T) {
	dir := t.TempDir()
	path := writeScenario(t, dir, "bad.toml", "protocol = \"netconf\"\n[[steps]]\ndo = \"read /x\"\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown protocol")
}

func TestScenarioWithoutStepsIsRejected(t *testing.T) {
	dir := t.TempDir()
	path := writeScenario(t, dir, "empty.toml", "name = \"empty\"\n")

	_, err := Load(path)
	require.Error(t, err)
}

func TestCrudAliasExpansion(t *testing.T) {
	dir := t.TempDir()
	path := writeScenario(t, dir, "crud.toml",
		"[[steps]]\ndo = \"crud /services/vlan=<<id>> --data '{}'\"\n")

	s, err := Load(path)
	require.NoError(t, err)
	tasks, err := s.Tasks()
	require.NoError(t, err)
	require.Len(t, tasks, 4)
	assert.Equal(t, "create", tasks[0].Op)
	assert.Equal(t, "read", tasks[1].Op)
	assert.Equal(t, "update", tasks[2].Op)
	assert.Equal(t, "delete", tasks[3].Op)

	// only writing operations keep the payload
	assert.NotEmpty(t, tasks[0].Data)
	assert.Empty(t, tasks[1].Data)
	assert.NotEmpty(t, tasks[2].Data)
	assert.Empty(t, tasks[3].Data)
}

func TestYAMLPayloadIsConvertedToJSON(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "vlan.yaml"),
		[]byte("vlan:\n  vid: 100\n  name: upstream\n"), 0o644))
	path := writeScenario(t, dir, "payload.toml",
		"[[steps]]\ndo = \"create /services/vlan=1\"\npayload = \"vlan.yaml\"\n")

	s, err := Load(path)
	require.NoError(t, err)
	tasks, err := s.Tasks()
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.JSONEq(t, `{"vlan": {"vid": 100, "name": "upstream"}}`, tasks[0].Data)
}

func TestJSONPayloadPassesThrough(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "vlan.json"),
		[]byte(`{"vid": 1}`), 0o644))
	path := writeScenario(t, dir, "payload.toml",
		"[[steps]]\ndo = \"create /services/vlan=1 --payload vlan.json\"\n")

	s, err := Load(path)
	require.NoError(t, err)
	tasks, err := s.Tasks()
	require.NoError(t, err)
	assert.Equal(t, `{"vid": 1}`, tasks[0].Data)
}

func TestStepErrorsNameTheStep(t *testing.T) {
	dir := t.TempDir()
	path := writeScenario(t, dir, "bad.toml",
		"[[steps]]\ndo = \"read /x\"\n\n[[steps]]\ndo = \"read /y --flag\"\n")

	s, err := Load(path)
	require.NoError(t, err)
	_, err = s.Tasks()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "step 2")
}

func TestExpandAdhoc(t *testing.T) {
	tasks := Expand("cud", "/services/vlan=<<id>>", `{"vid": 1}`, "dry-run")
	require.Len(t, tasks, 3)
	assert.Equal(t, "create", tasks[0].Op)
	assert.Equal(t, "update", tasks[1].Op)
	assert.Equal(t, "delete", tasks[2].Op)
	for _, task := range tasks {
		assert.Equal(t, "dry-run", task.Query)
	}

	single := Expand("read", "/x", "", "")
	require.Len(t, single, 1)
	assert.Equal(t, "read", single[0].Op)
}
