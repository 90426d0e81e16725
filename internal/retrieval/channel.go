package retrieval

import (
	"net/url"
	"strings"
)

// URLPlaceholder marks where a relay template receives the escaped upstream URL.
const URLPlaceholder = "{url}"

// Channel is one fallback route to the places provider. Endpoint maps the
// upstream search URL to the URL actually fetched. Channels hold no state.
type Channel struct {
	Name     string
	Endpoint func(upstreamURL string) string
}

// Direct fetches the provider URL as is.
func Direct() Channel {
	return Channel{
		Name:     "direct",
		Endpoint: func(upstream string) string { return upstream },
	}
}

// Relay builds a channel from a template such as
// "https://relay.example/raw?url={url}". A template that is exactly
// "{url}" is the direct route.
func Relay(name, template string) Channel {
	if strings.TrimSpace(template) == URLPlaceholder {
		ch := Direct()
		if name != "" {
			ch.Name = name
		}
		return ch
	}
	return Channel{
		Name: name,
		Endpoint: func(upstream string) string {
			return strings.ReplaceAll(template, URLPlaceholder, url.QueryEscape(upstream))
		},
	}
}

// DefaultChannels is the fallback order used when none is configured: the
// provider itself, then public read-only relays.
func DefaultChannels() []Channel {
	return []Channel{
		Direct(),
		Relay("allorigins", "https://api.allorigins.win/raw?url={url}"),
		Relay("corsproxy", "https://corsproxy.io/?url={url}"),
		Relay("codetabs", "https://api.codetabs.com/v1/proxy?quest={url}"),
	}
}
