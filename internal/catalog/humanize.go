package catalog

import "strings"

// Humanize turns a raw identifier such as "user_id" into a display name such
// as "User Id". Words are split only on '_', '-' and '.'; camelCase is not
// split, so "userID" becomes "Userid". Store implementations may delegate their
// NameToHumanReadable to this default; it is exported so the in-memory and
// SQLite stores in internal/catalogstore share one definition.
func Humanize(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return name
	}
	replaced := strings.Map(func(r rune) rune {
		switch r {
		case '_', '-', '.':
			return ' '
		default:
			return r
		}
	}, name)

	words := strings.Fields(replaced)
	for i, w := range words {
		words[i] = capitalizeWord(w)
	}
	return strings.Join(words, " ")
}

func capitalizeWord(w string) string {
	r := []rune(strings.ToLower(w))
	if len(r) == 0 {
		return w
	}
	r[0] = []rune(strings.ToUpper(string(r[0])))[0]
	return string(r)
}
