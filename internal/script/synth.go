package script

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"

	"github.com/imamik/comfyprov/internal/config"
)

// WorkspaceDir is the persistent volume mount on every instance.
const WorkspaceDir = "/workspace"

// huggingFaceHost marks URLs that receive the HF_TOKEN authorization header.
const huggingFaceHost = "huggingface.co"

// Synthesize renders the provisioning script for cfg. Lines are joined with
// "\n" and the result has no trailing newline.
func Synthesize(cfg *config.ProvisioningConfig) string {
	lines := []string{
		"#!/bin/bash",
		"set -e",
		"echo 'Starting ComfyUI Provisioning...'",
		"cd " + WorkspaceDir,
		"",
		"# Install ComfyUI",
		"if [ ! -d 'ComfyUI' ]; then",
		"  git clone " + shellWord(cfg.ComfyUIRepo),
		"fi",
		"cd ComfyUI",
		"pip install -r requirements.txt",
		"",
		"# Install Manager",
		"cd custom_nodes",
		"if [ ! -d 'ComfyUI-Manager' ]; then",
		"  git clone " + shellWord(cfg.ComfyUIManagerRepo),
		"fi",
		"cd ..",
		"",
		"# Download Models",
	}

	for _, m := range cfg.Models {
		lines = append(lines, downloadLines(m, cfg.HFToken)...)
	}

	lines = append(lines, "echo 'Provisioning Complete!'")
	return strings.Join(lines, "\n")
}

// Checksum returns the hex SHA-256 digest of a synthesized script.
func Checksum(script string) string {
	sum := sha256.Sum256([]byte(script))
	return hex.EncodeToString(sum[:])
}

// downloadLines returns the steps for one model, or nil when its URL is not
// an HTTP(S) URL.
func downloadLines(m config.ModelSpec, hfToken string) []string {
	u, ok := httpURL(m.URL)
	if !ok {
		return nil
	}

	dir := "models/" + m.InstallPath()

	var wget strings.Builder
	wget.WriteString("wget ")
	if hfToken != "" && isHuggingFaceHost(u.Hostname()) {
		wget.WriteString("--header=")
		wget.WriteString(shellQuote("Authorization: Bearer " + hfToken))
		wget.WriteString(" ")
	}
	wget.WriteString("-O ")
	wget.WriteString(shellQuote(dir + "/" + m.Name))
	wget.WriteString(" ")
	wget.WriteString(shellQuote(m.URL))

	return []string{
		"echo " + shellQuote("Downloading "+m.Name+"..."),
		"mkdir -p " + shellQuote(dir),
		wget.String(),
	}
}

// isHuggingFaceHost matches huggingface.co and its subdomains, ignoring case.
func isHuggingFaceHost(host string) bool {
	host = strings.ToLower(host)
	return host == huggingFaceHost || strings.HasSuffix(host, "."+huggingFaceHost)
}

func httpURL(raw string) (*url.URL, bool) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, false
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return u, u.Host != ""
	default:
		return nil, false
	}
}

// shellQuote wraps s in single quotes, escaping embedded single quotes.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// shellWord returns s unchanged when it only contains characters that need
// no quoting, and single-quoted otherwise.
func shellWord(s string) string {
	if s == "" {
		return "''"
	}
	for _, r := range s {
		if !isSafeShellRune(r) {
			return shellQuote(s)
		}
	}
	return s
}

func isSafeShellRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	}
	return strings.ContainsRune("-_./:@%+=,~", r)
}
