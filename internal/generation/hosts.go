package generation

import (
	"net"
	"net/url"
	"strings"
)

// PublicImages reports whether every image URL points at a public host.
// Vision models fetch images themselves and cannot reach private ones.
func PublicImages(images []string) bool {
	if len(images) == 0 {
		return false
	}
	for _, image := range images {
		if !isPublicURL(image) {
			return false
		}
	}
	return true
}

func isPublicURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return false
	}

	host := strings.ToLower(u.Hostname())
	if host == "" || host == "localhost" {
		return false
	}
	for _, suffix := range []string{".localhost", ".local", ".internal", ".lan"} {
		if strings.HasSuffix(host, suffix) {
			return false
		}
	}

	if ip := net.ParseIP(host); ip != nil {
		return !(ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() ||
			ip.IsLinkLocalMulticast() || ip.IsUnspecified())
	}
	return true
}
