// Package keygen generates SSH key pairs.
//
// Keys are produced in PEM format (private) and OpenSSH authorized_keys
// format (public). A fresh Ed25519 pair is minted for every provisioning
// run and its public half is injected into the instance at creation time,
// so the session manager always has a key the instance accepts.
package keygen
