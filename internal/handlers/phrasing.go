package handlers

import "strings"

// JoinNames lists names the way they are spoken: "a", "a and b",
// "a, b, and c".
func JoinNames(names []string) string {
	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0]
	case 2:
		return names[0] + " and " + names[1]
	default:
		return strings.Join(names[:len(names)-1], ", ") + ", and " + names[len(names)-1]
	}
}

// splitNames splits a comma separated argument list, dropping blanks.
func splitNames(args string) []string {
	var names []string
	for _, part := range strings.Split(args, ",") {
		if part = strings.TrimSpace(part); part != "" {
			names = append(names, part)
		}
	}
	return names
}
