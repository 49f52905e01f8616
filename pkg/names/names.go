// Package names normalizes definition names between the case styles used in
// manifests and the canonical PascalCase form used internally.
package names

import (
	"regexp"

	"github.com/iancoleman/strcase"

	"github.com/deckhand-sh/deckhand/pkg/deckerrors"
)

var (
	sanitisePattern = regexp.MustCompile(`[^A-Za-z0-9_\- ]`)
	leadingUpper    = regexp.MustCompile(`^[A-Z]`)
)

// Normalise converts camelCase, snake_case, kebab-case and free text to
// PascalCase.
//
// Numbers are treated as lower-case characters, but cannot start the name.
func Normalise(name string) (string, error) {
	// Strip anything outside A-Z, 0-9, space, dash or underscore.
	norm := sanitisePattern.ReplaceAllString(name, "")
	norm = strcase.ToCamel(norm)

	if !leadingUpper.MatchString(norm) {
		return "", deckerrors.Definitionf("names must start with A-Z: %q", name)
	}

	return norm, nil
}

// MustNormalise runs [Normalise] and panics on any errors. It is intended for
// names that are known constants.
func MustNormalise(name string) string {
	norm, err := Normalise(name)
	if err != nil {
		panic(err)
	}

	return norm
}

// PascalToSnake converts a PascalCase name to snake_case, for use in Docker
// container and remote directory names.
//
// The input is assumed to have come from [Normalise], so no sanitation is
// performed.
func PascalToSnake(name string) string {
	return strcase.ToSnake(name)
}
