package repo

import (
	"os"
	"path/filepath"
)

// MetaFolderName is the name of the hidden folder in the working tree
// that holds all repository data.
const MetaFolderName = ".snap"

// IsRepo checks if `folder` contains a snap repository.
// Currently, this is implemented by checking for the hidden .snap folder.
func IsRepo(folder string) bool {
	info, err := os.Stat(filepath.Join(folder, MetaFolderName))
	if err != nil {
		return false
	}

	return info.IsDir()
}

// FindRepo checks if `folder` or any of it's parents contains a snap
// repository. It uses IsRepo() to check if the folder is a repository.
// The path works on both relative and absolute paths.
// An empty string is returned when nothing was found.
func FindRepo(folder string) string {
	curr, err := filepath.Abs(folder)
	if err != nil {
		return ""
	}

	for curr != "" {
		if IsRepo(curr) {
			return curr
		}

		// Try in the parent directory:
		dirname := filepath.Dir(curr)
		if dirname == curr {
			break
		}

		curr = dirname
	}

	return ""
}
