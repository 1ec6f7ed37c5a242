package errors

import "errors"

var NotFound = errors.New("Not found")
