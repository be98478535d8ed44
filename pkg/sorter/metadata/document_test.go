package metadata_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CartoonFan/libloot/pkg/sorter/metadata"
)

const sampleDoc = `
bash_tags:
  - C.Climate
groups:
  - name: Overhauls
    after: [default]
globals:
  - type: say
    content: "hello"
plugins:
  - name: Blank.esp
    priority: 5
    tag:
      - Relation
      - -Actors.ACBS
  - name: 'Blank.*\.esp'
    msg:
      - type: warn
        content: "matched a regex entry"
`

func TestLoadParsesExactAndRegexEntries(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "masterlist.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleDoc), 0o644))

	doc := metadata.New()
	require.NoError(t, doc.Load(path))

	assert.Len(t, doc.ExactPlugins, 1)
	assert.Len(t, doc.RegexPlugins, 1)
	assert.Contains(t, doc.BashTags, "C.Climate")
	assert.Contains(t, doc.Groups, "Overhauls")
}

func TestFindPluginMergesRegexOntoExact(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "masterlist.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleDoc), 0o644))

	doc := metadata.New()
	require.NoError(t, doc.Load(path))

	merged, err := doc.FindPlugin("Blank.esp")
	require.NoError(t, err)
	assert.Equal(t, "Blank.esp", merged.Name)
	assert.Equal(t, int16(5), merged.Priority.Local)
	assert.Len(t, merged.Messages, 1)
	assert.Len(t, merged.Tags, 2)
}

func TestFindPluginUnknownNameReturnsDefaults(t *testing.T) {
	doc := metadata.New()
	m, err := doc.FindPlugin("Nonexistent.esp")
	require.NoError(t, err)
	assert.True(t, m.Enabled)
	assert.True(t, m.IsNameOnly())
}

func TestUnknownTopLevelKeyRejected(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("not_a_real_key: 1\n"), 0o644))

	doc := metadata.New()
	err := doc.Load(path)
	require.Error(t, err)
}

func TestSaveOmitsNameOnlyEntries(t *testing.T) {
	doc := metadata.New()
	require.NoError(t, doc.AddPlugin(metadata.NewPluginMetadata("Untouched.esp")))
	withTag := metadata.NewPluginMetadata("Tagged.esp")
	withTag.Tags = map[string]metadata.Tag{"relation": {Name: "Relation"}}
	require.NoError(t, doc.AddPlugin(withTag))

	dir := t.TempDir()
	path := filepath.Join(dir, "out.yaml")
	require.NoError(t, doc.Save(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "Untouched.esp")
	assert.Contains(t, string(data), "Tagged.esp")
}

func TestValidateRejectsUnknownKey(t *testing.T) {
	violations, err := metadata.Validate([]byte("totally_unknown: true\n"))
	require.NoError(t, err)
	assert.NotEmpty(t, violations)
}

func TestValidateAcceptsWellFormedDocument(t *testing.T) {
	violations, err := metadata.Validate([]byte(sampleDoc))
	require.NoError(t, err)
	assert.Empty(t, violations)
}
