// Package github fetches pull-request diffs and metadata and publishes
// merged findings as a PR review.
//
// Reviews are posted as event COMMENT with inline comments on the new side
// of the diff. Finding lines are validated against the commentable lines of
// the fetched diff and snapped to the nearest one within a small window;
// findings that cannot be mapped fold into the review body. Publishing is
// never retried: a failure surfaces as PublishFailedError and the rendered
// report remains available locally.
//
// Authentication uses an OAuth2 token from configuration or the
// GITHUB_TOKEN environment variable. PR references are accepted as full
// URLs, owner/repo#number, or a bare #number resolved against the origin
// remote of the current repository.
package github
