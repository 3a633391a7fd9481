// Package filter is the visibility and filtering decision layer.
//
// Visible restricts the company and task universe to what an identity may
// see. Compose narrows the visible tasks by the user's facet selection and
// the sidebar company, and derives the status counts. Both are pure: they
// read immutable snapshots and return fresh slices, so every view consumes
// already-authorized, already-filtered data instead of repeating role checks.
package filter
