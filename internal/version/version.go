package version

// Version is the current version of mdwatch.
// This MUST be incremented for each build that includes changes.
// Use semantic versioning: MAJOR.MINOR.PATCH
const Version = "0.3.0"
