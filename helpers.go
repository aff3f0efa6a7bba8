package fts

import "strings"

// joinPath extends a directory path by one component. A single trailing
// slash is collapsed, so produced paths keep the shape of the root argument
// they descend from and are never cleaned beyond that.
func joinPath(dir, name string) string {
	dir = strings.TrimSuffix(dir, "/")

	return dir + "/" + name
}

func isDotName(name string) bool {
	return name == "." || name == ".."
}
