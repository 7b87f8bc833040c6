package naming

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultInstancePrefix is used when no prefix is configured.
const DefaultInstancePrefix = "ComfyUI"

// Instance returns a unique instance name derived from the given time.
func Instance(prefix string, now time.Time) string {
	if prefix == "" {
		prefix = DefaultInstancePrefix
	}
	return fmt.Sprintf("%s-%d-%s", prefix, now.Unix(), shortID())
}

// SSHKey returns the name of the SSH key resource uploaded for an instance.
func SSHKey(instance string) string {
	return fmt.Sprintf("%s-key", instance)
}

// KeyComment returns the authorized_keys comment for an instance's ephemeral key.
func KeyComment(instance string) string {
	return fmt.Sprintf("comfyprov@%s", strings.ToLower(instance))
}

// HeredocSentinel returns a heredoc terminator that is unique per call.
func HeredocSentinel() string {
	return "COMFYPROV_EOF_" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
}

func shortID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}
