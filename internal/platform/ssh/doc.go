// Package ssh runs the provisioning script on an instance over SSH and
// streams its output.
//
// A Manager is configured once with the login user, the keys to offer and a
// host key policy. Each call to Start or ConnectAndRun then:
//
//   - resolves the instance's public SSH endpoint
//   - waits for sshd to settle and dials with a bounded number of attempts
//   - runs the instance's bootstrap command, if any
//   - uploads the script through a heredoc
//   - executes it and yields stdout line by line as it arrives
//
// Every failure is reported as a single descriptive line that ends the
// sequence. Run.Err exposes the failure to callers that need to branch on it.
//
// Security: host keys are not verified by default since every instance is
// freshly created. Use KnownHostsPolicy for long-lived instances.
package ssh
