package paths

import (
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Separator is the virtual filesystem separator. Virtual paths are always
// POSIX style regardless of the host OS.
const Separator = "/"

// Root is the virtual root
const Root = "/"

// DefaultTrashName is the name of the per-user Trash container
const DefaultTrashName = "Trash"

// MaxNameLength is the default upper bound for entry names
const MaxNameLength = 767

// Normalize cleans a virtual path: leading slash, no trailing slash,
// no duplicate separators and no dot segments.
func Normalize(p string) string {
	if p == "" {
		return Root
	}
	if !strings.HasPrefix(p, Separator) {
		p = Separator + p
	}
	return path.Clean(p)
}

// Join joins path elements into a normalized virtual path
func Join(elem ...string) string {
	return Normalize(path.Join(elem...))
}

// Dir returns the parent directory of a virtual path
func Dir(p string) string {
	return path.Dir(Normalize(p))
}

// Base returns the last element of a virtual path
func Base(p string) string {
	return path.Base(Normalize(p))
}

// Ext returns the extension of a name or path including the leading dot
func Ext(p string) string {
	return path.Ext(p)
}

// TrimExt returns the name without its extension
func TrimExt(name string) string {
	return strings.TrimSuffix(name, path.Ext(name))
}

// Equal compares two virtual paths with case-insensitive semantics
func Equal(a, b string) bool {
	return strings.EqualFold(Normalize(a), Normalize(b))
}

// IsDescendant reports whether p lies strictly below root
func IsDescendant(p, root string) bool {
	p, root = Normalize(p), Normalize(root)
	if root == Root {
		return p != Root
	}
	if len(p) <= len(root)+1 {
		return false
	}
	return strings.EqualFold(p[:len(root)], root) && p[len(root)] == '/'
}

// IsWithin reports whether p equals root or lies below it
func IsWithin(p, root string) bool {
	return Equal(p, root) || IsDescendant(p, root)
}

// Rebase moves p from under oldRoot to under newRoot. Paths outside
// oldRoot are returned unchanged.
func Rebase(p, oldRoot, newRoot string) string {
	if Equal(p, oldRoot) {
		return Normalize(newRoot)
	}
	if !IsDescendant(p, oldRoot) {
		return p
	}
	rel := Normalize(p)[len(Normalize(oldRoot)):]
	if Normalize(oldRoot) == Root {
		rel = Normalize(p)
	}
	return Join(newRoot, rel)
}

// Rel returns p relative to root, without a leading slash
func Rel(p, root string) (string, error) {
	if !IsDescendant(p, root) {
		return "", fmt.Errorf("%s is not below %s", p, root)
	}
	rel := Normalize(p)[len(Normalize(root)):]
	return strings.TrimPrefix(rel, Separator), nil
}

// Trash returns the Trash path for a user home directory
func Trash(home, trashName string) string {
	if trashName == "" {
		trashName = DefaultTrashName
	}
	return Join(home, trashName)
}

// Home returns the home directory of a user
func Home(username string) string {
	return Join(Root, username)
}

// ShortcutName derives the display name of a shortcut to name
func ShortcutName(name string) string {
	ext := Ext(name)
	return TrimExt(name) + " - Shortcut" + ext
}

// ErrInvalidName matches every ValidateName failure
var ErrInvalidName = errors.New("invalid name")

type nameError string

func (e nameError) Error() string        { return string(e) }
func (e nameError) Is(target error) bool { return target == ErrInvalidName }

// ValidateName checks an entry name before it is sent to the server
func ValidateName(name string, maxLen int) error {
	if maxLen <= 0 {
		maxLen = MaxNameLength
	}
	switch {
	case name == "":
		return nameError("name cannot be empty")
	case strings.Contains(name, Separator):
		return nameError("name cannot contain a '/'")
	case name == ".":
		return nameError("name cannot be '.'")
	case name == "..":
		return nameError("name cannot be '..'")
	case len(name) > maxLen:
		return nameError(fmt.Sprintf("name cannot be longer than %d characters", maxLen))
	}
	return nil
}

// MatchAny reports whether name matches any of the glob patterns.
// Invalid patterns never match.
func MatchAny(patterns []string, name string) bool {
	for _, pattern := range patterns {
		if ok, err := doublestar.Match(pattern, name); err == nil && ok {
			return true
		}
	}
	return false
}
