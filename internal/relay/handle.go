package relay

import (
	"fmt"
	"net/url"
	"path"
	"strings"
)

// DefaultQueueHosts are the upstream hosts that hand out polling handles.
var DefaultQueueHosts = []string{"queue.fal.run"}

// RewriteHandle routes a polling handle through relay when the handle points
// at one of the upstream's native queue hosts. Path and query are preserved,
// scheme and host are replaced, and the relay base path is prefixed. A nil
// relay returns the handle untouched.
func RewriteHandle(handle string, relay *url.URL, queueHosts []string) (string, error) {
	parsed, err := url.Parse(strings.TrimSpace(handle))
	if err != nil {
		return "", fmt.Errorf("relay: parse polling handle: %w", err)
	}
	if !parsed.IsAbs() {
		return "", fmt.Errorf("relay: polling handle %q is not an absolute url", handle)
	}
	if relay == nil || !isQueueHost(parsed.Hostname(), queueHosts) {
		return parsed.String(), nil
	}
	rewritten := *parsed
	rewritten.Scheme = relay.Scheme
	rewritten.Host = relay.Host
	rewritten.User = relay.User
	if prefix := strings.TrimRight(relay.Path, "/"); prefix != "" {
		rewritten.Path = path.Join(prefix, parsed.Path)
		rewritten.RawPath = ""
	}
	return rewritten.String(), nil
}

func isQueueHost(host string, queueHosts []string) bool {
	for _, candidate := range queueHosts {
		if strings.EqualFold(strings.TrimSpace(candidate), host) {
			return true
		}
	}
	return false
}
