package filter

import "errors"

// ErrUnauthorized reports an absent or malformed identity. Callers receive
// an empty Visibility alongside it and must not fall back to showing data.
var ErrUnauthorized = errors.New("unauthorized access")

// ErrCompanyRequired is returned when an admin files a task without naming a company.
var ErrCompanyRequired = errors.New("company is required")
