package filesystem_test

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/gitfo/internal/repos/filesystem"
)

const (
	testFleetFileNameConstant        = ".gitfo"
	testInitialContentConstant       = "{\"profiles\":{}}"
	testReplacementContentConstant   = "{}"
	testFilePermissionsConstant      = 0o644
	testDirectoryPermissionsConstant = 0o755
)

func TestOSFileSystemCreateExclusiveRefusesExistingFile(testInstance *testing.T) {
	fileSystem := filesystem.OSFileSystem{}
	targetPath := filepath.Join(testInstance.TempDir(), testFleetFileNameConstant)

	require.NoError(testInstance, fileSystem.CreateExclusive(targetPath, []byte(testInitialContentConstant), testFilePermissionsConstant))

	secondError := fileSystem.CreateExclusive(targetPath, []byte(testReplacementContentConstant), testFilePermissionsConstant)
	require.ErrorIs(testInstance, secondError, fs.ErrExist)

	content, readError := fileSystem.ReadFile(targetPath)
	require.NoError(testInstance, readError)
	require.Equal(testInstance, testInitialContentConstant, string(content))
}

func TestOSFileSystemReadDirIsSorted(testInstance *testing.T) {
	rootDirectory := testInstance.TempDir()
	for _, directoryName := range []string{"zeta", "alpha", "mu"} {
		require.NoError(testInstance, os.MkdirAll(filepath.Join(rootDirectory, directoryName), testDirectoryPermissionsConstant))
	}

	entries, readError := filesystem.OSFileSystem{}.ReadDir(rootDirectory)
	require.NoError(testInstance, readError)

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	require.Equal(testInstance, []string{"alpha", "mu", "zeta"}, names)
}
