// Package runpod implements compute.Provider on top of the RunPod GraphQL API.
//
// The API key is bound once at construction and sent as a bearer token on
// every request. Idempotent calls (queries and termination) are retried on
// transient failures: network errors, HTTP 429 and HTTP 5xx. GraphQL errors
// and other HTTP statuses fail immediately. Pod creation is never retried,
// since a lost response would otherwise lease a second pod.
package runpod
