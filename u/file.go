package u

import (
	"os"
	"strings"
)

// DirExists returns true if path exists and is a directory
func DirExists(path string) bool {
	st, err := os.Lstat(path)
	return err == nil && st.IsDir()
}

// ExpandTildeInPath replaces leading ~ with user's home directory
func ExpandTildeInPath(s string) (string, error) {
	if !strings.HasPrefix(s, "~") {
		return s, nil
	}
	dir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return dir + s[1:], nil
}
