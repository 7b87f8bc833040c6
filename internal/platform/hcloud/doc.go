// Package hcloud implements compute.Provider on Hetzner Cloud servers.
//
// Hetzner offers no GPU server types, so this backend serves CPU-only runs:
// smoke-testing the install script, workflows that only need the ComfyUI
// graph editor, and development without a RunPod account.
//
// A server is created from a stock OS image with cloud-init user data that
// prepares /workspace and the packages the install script expects. The
// instance returned by CreateInstance carries a bootstrap command that waits
// for cloud-init to finish before the session manager uploads the script.
//
// Calls are retried with exponential backoff while the API reports locked
// resources or rate limiting. Invalid parameters fail immediately.
package hcloud
