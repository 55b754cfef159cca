// Package common defines shared sentinel errors and small helpers used
// across attachkeeper packages. Callers should use errors.Is to match these
// values.
package common

import "errors"

// ErrorNotFound is returned by lookups that miss.
var ErrorNotFound = errors.New("not found")
