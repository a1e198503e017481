package syntax

import "errors"

// ErrUnsupportedLanguage is returned when no grammar or lexer is known for
// a requested language.
var ErrUnsupportedLanguage = errors.New("unsupported language")
