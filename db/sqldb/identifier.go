package sqldb

import "regexp"

// IdentifierRegexp matches a plain SQL-style identifier: no dots, no quoting
var IdentifierRegexp = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func IsIdentifier(s string) bool {
	return IdentifierRegexp.MatchString(s)
}
