package detector_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/fixforward/fixforward/internal/adapters/outbound/detector"
	"github.com/fixforward/fixforward/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixtureDir = "../../../../testdata/projects"

func TestEcosystemDetector_Fixtures(t *testing.T) {
	tests := []struct {
		project string
		want    domain.Ecosystem
	}{
		{"python", domain.EcosystemPython},
		{"pyproject", domain.EcosystemPython},
		{"bare-pytests", domain.EcosystemPython},
		{"node", domain.EcosystemNode},
		{"rust", domain.EcosystemRust},
	}
	d := detector.New()
	for _, tt := range tests {
		t.Run(tt.project, func(t *testing.T) {
			eco, err := d.Detect(filepath.Join(fixtureDir, tt.project))
			require.NoError(t, err)
			assert.Equal(t, tt.want, eco)
		})
	}
}

func TestEcosystemDetector_UnknownProject(t *testing.T) {
	_, err := detector.New().Detect(filepath.Join(fixtureDir, "unknown"))

	var derr *domain.DetectionError
	require.ErrorAs(t, err, &derr)
	assert.Contains(t, derr.Reason, "no supported ecosystem")
}

func TestEcosystemDetector_MissingPath(t *testing.T) {
	_, err := detector.New().Detect(filepath.Join(t.TempDir(), "nope"))

	var derr *domain.DetectionError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, "path does not exist", derr.Reason)
}

func TestEcosystemDetector_FileIsNotADirectory(t *testing.T) {
	file := filepath.Join(t.TempDir(), "pytest.ini")
	require.NoError(t, os.WriteFile(file, []byte("[pytest]\n"), 0o644))

	_, err := detector.New().Detect(file)

	var derr *domain.DetectionError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, "not a directory", derr.Reason)
}

func TestEcosystemDetector_PythonWinsOverNode(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "package.json", "{}")
	writeFile(t, dir, "setup.cfg", "[tool:pytest]\naddopts = -q\n")

	eco, err := detector.New().Detect(dir)
	require.NoError(t, err)
	assert.Equal(t, domain.EcosystemPython, eco)
}

func TestEcosystemDetector_PyprojectWithoutPytestFallsThrough(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "pyproject.toml", "[project]\nname = \"x\"\n")
	writeFile(t, dir, "Cargo.toml", "[package]\nname = \"x\"\n")

	eco, err := detector.New().Detect(dir)
	require.NoError(t, err)
	assert.Equal(t, domain.EcosystemRust, eco)
}

func TestEcosystemDetector_IgnoresTestsInsideDependencyDirs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "package.json", "{}")
	writeFile(t, dir, "node_modules/pkg/test_thing.py", "def test_x(): pass\n")
	writeFile(t, dir, ".venv/lib/test_other.py", "def test_y(): pass\n")

	eco, err := detector.New().Detect(dir)
	require.NoError(t, err)
	assert.Equal(t, domain.EcosystemNode, eco)
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}
