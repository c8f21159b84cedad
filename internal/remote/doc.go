// Package remote moves bundles between the local library and git hosting.
//
// Client drives the git CLI for clone, fetch, commit, tag and push. Tokens
// are injected into http(s) URLs on the command line only and are redacted
// from every log line and error. Local repository inspection (remotes,
// tags, current branch) uses go-git. Host wraps the GitHub and GitLab REST
// APIs used to check for and create repositories.
package remote
