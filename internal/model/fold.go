package model

import "strings"

// rfc1459 treats []\~ as the upper-case forms of {}|^.
var foldReplacer = strings.NewReplacer("[", "{", "]", "}", "\\", "|", "~", "^")

// Fold returns the case-insensitive form of a nick or channel name
// using the rfc1459 mapping.
func Fold(name string) string {
	return foldReplacer.Replace(strings.ToLower(name))
}

// SameName reports whether a and b name the same nick or channel.
func SameName(a, b string) bool {
	return Fold(a) == Fold(b)
}
