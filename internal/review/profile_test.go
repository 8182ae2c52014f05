package review

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeProfile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestBuiltinProfiles(t *testing.T) {
	profiles := BuiltinProfiles()
	require.Len(t, profiles, 3)

	var names []string
	for _, p := range profiles {
		names = append(names, p.Name)
		assert.NoError(t, p.Validate(), "builtin %q should validate", p.Name)
		assert.NotEmpty(t, p.Role, "builtin %q should have a role", p.Name)
		assert.NotEmpty(t, p.Categories, "builtin %q should have categories", p.Name)
	}
	assert.Equal(t, []string{"general", "security", "quality"}, names)
}

func TestProfileValidate(t *testing.T) {
	tests := []struct {
		name    string
		profile Profile
		wantErr bool
	}{
		{"valid", Profile{Name: "x", Instructions: "review things"}, false},
		{"missing name", Profile{Instructions: "review things"}, true},
		{"blank name", Profile{Name: "   ", Instructions: "review things"}, true},
		{"missing instructions", Profile{Name: "x"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.profile.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadProfileFile(t *testing.T) {
	dir := t.TempDir()
	writeProfile(t, dir, "api.yaml", `name: api
role: API design review
instructions: Check endpoint naming and error shapes.
categories:
  - api
  - design
`)

	p, err := LoadProfileFile(filepath.Join(dir, "api.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "api", p.Name)
	assert.Equal(t, "API design review", p.Role)
	assert.Contains(t, p.Instructions, "endpoint naming")
	assert.Equal(t, []string{"api", "design"}, p.Categories)
}

func TestLoadProfileFile_NameFromFilename(t *testing.T) {
	dir := t.TempDir()
	writeProfile(t, dir, "perf.yaml", "instructions: Look for allocation hot spots.\n")

	p, err := LoadProfileFile(filepath.Join(dir, "perf.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "perf", p.Name)
}

func TestLoadProfileFile_NoInstructions(t *testing.T) {
	dir := t.TempDir()
	writeProfile(t, dir, "empty.yaml", "name: empty\n")

	_, err := LoadProfileFile(filepath.Join(dir, "empty.yaml"))
	assert.Error(t, err)
}

func TestLoadProfileDir(t *testing.T) {
	dir := t.TempDir()
	writeProfile(t, dir, "b-docs.yaml", "instructions: Check docs.\n")
	writeProfile(t, dir, "a-perf.yml", "instructions: Check perf.\n")
	writeProfile(t, dir, "notes.txt", "not a profile")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))

	profiles, err := LoadProfileDir(dir)
	require.NoError(t, err)
	require.Len(t, profiles, 2)
	// Sorted by file name, names derived from the files.
	assert.Equal(t, "a-perf", profiles[0].Name)
	assert.Equal(t, "b-docs", profiles[1].Name)
}

func TestLoadProfileDir_Missing(t *testing.T) {
	profiles, err := LoadProfileDir(filepath.Join(t.TempDir(), "nope"))
	assert.NoError(t, err)
	assert.Empty(t, profiles)
}

func TestLoadProfileDir_Empty(t *testing.T) {
	profiles, err := LoadProfileDir("")
	assert.NoError(t, err)
	assert.Empty(t, profiles)
}

func TestResolveProfiles_DefaultsToAllAvailable(t *testing.T) {
	profiles, err := ResolveProfiles(nil, "")
	require.NoError(t, err)
	require.Len(t, profiles, 3)
	assert.Equal(t, "general", profiles[0].Name)
	assert.Equal(t, "security", profiles[1].Name)
	assert.Equal(t, "quality", profiles[2].Name)
}

func TestResolveProfiles_ByName(t *testing.T) {
	profiles, err := ResolveProfiles([]string{"security", "general"}, "")
	require.NoError(t, err)
	require.Len(t, profiles, 2)
	// Caller order wins, not builtin order.
	assert.Equal(t, "security", profiles[0].Name)
	assert.Equal(t, "general", profiles[1].Name)
}

func TestResolveProfiles_TrimsNames(t *testing.T) {
	profiles, err := ResolveProfiles([]string{" security "}, "")
	require.NoError(t, err)
	require.Len(t, profiles, 1)
	assert.Equal(t, "security", profiles[0].Name)
}

func TestResolveProfiles_Unknown(t *testing.T) {
	_, err := ResolveProfiles([]string{"astrology"}, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "astrology")
}

func TestResolveProfiles_FileOverridesBuiltin(t *testing.T) {
	dir := t.TempDir()
	writeProfile(t, dir, "security.yaml", `name: security
role: custom security review
instructions: Focus only on authentication.
`)

	profiles, err := ResolveProfiles([]string{"security"}, dir)
	require.NoError(t, err)
	require.Len(t, profiles, 1)
	assert.Equal(t, "custom security review", profiles[0].Role)
	assert.Contains(t, profiles[0].Instructions, "authentication")
}

func TestResolveProfiles_DirAddsToDefaults(t *testing.T) {
	dir := t.TempDir()
	writeProfile(t, dir, "docs.yaml", "instructions: Check documentation.\n")

	profiles, err := ResolveProfiles(nil, dir)
	require.NoError(t, err)
	require.Len(t, profiles, 4)
	assert.Equal(t, "docs", profiles[3].Name)
}
