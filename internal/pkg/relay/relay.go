// Package relay holds the URL rewriters that route a request through a
// third-party relay when the upstream cannot be reached directly.
package relay

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"

	"github.com/Vodeneev/sportsfeed/internal/pkg/config"
)

// Rewriter maps a target URL to the URL of the same resource behind a relay.
type Rewriter func(target string) string

// Relay is a named rewriter. The name is only used for logs and metrics.
type Relay struct {
	Name    string
	Rewrite Rewriter
}

// Prefix builds a rewriter that appends the target to prefix, query-escaping
// it when encode is set.
func Prefix(prefix string, encode bool) Rewriter {
	return func(target string) string {
		if encode {
			return prefix + url.QueryEscape(target)
		}
		return prefix + target
	}
}

var (
	registryMu sync.RWMutex
	registry   = map[string]Rewriter{}
	// builtinOrder is the default chain priority.
	builtinOrder []string
)

func init() {
	Register("corsproxy", Prefix("https://corsproxy.io/?", true))
	Register("allorigins", Prefix("https://api.allorigins.win/raw?url=", true))
	Register("thingproxy", Prefix("https://thingproxy.freeboard.io/fetch/", false))
}

func Register(name string, r Rewriter) {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		panic("relay: empty name in Register")
	}
	if r == nil {
		panic("relay: nil rewriter in Register for " + n)
	}

	registryMu.Lock()
	defer registryMu.Unlock()
	if _, exists := registry[n]; exists {
		panic("relay: duplicate registration for " + n)
	}
	registry[n] = r
	builtinOrder = append(builtinOrder, n)
}

func ByName(name string) (Rewriter, bool) {
	n := strings.ToLower(strings.TrimSpace(name))
	registryMu.RLock()
	defer registryMu.RUnlock()
	r, ok := registry[n]
	return r, ok
}

func AvailableNames() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	out := make([]string, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Chain is an ordered, immutable list of relays.
type Chain struct {
	relays []Relay
}

func NewChain(relays ...Relay) Chain {
	cp := make([]Relay, len(relays))
	copy(cp, relays)
	return Chain{relays: cp}
}

// Default returns every registered relay in registration order.
func Default() Chain {
	registryMu.RLock()
	defer registryMu.RUnlock()
	relays := make([]Relay, 0, len(builtinOrder))
	for _, name := range builtinOrder {
		relays = append(relays, Relay{Name: name, Rewrite: registry[name]})
	}
	return Chain{relays: relays}
}

// FromConfig builds the chain described by the resolver.relays section.
// An empty section yields Default().
func FromConfig(relays []config.RelayConfig) (Chain, error) {
	if len(relays) == 0 {
		return Default(), nil
	}
	out := make([]Relay, 0, len(relays))
	for _, rc := range relays {
		if rc.Prefix != "" {
			out = append(out, Relay{Name: rc.Name, Rewrite: Prefix(rc.Prefix, rc.Encode)})
			continue
		}
		r, ok := ByName(rc.Name)
		if !ok {
			return Chain{}, fmt.Errorf("unknown relay %q (available: %v)", rc.Name, AvailableNames())
		}
		out = append(out, Relay{Name: strings.ToLower(strings.TrimSpace(rc.Name)), Rewrite: r})
	}
	return Chain{relays: out}, nil
}

func (c Chain) Len() int { return len(c.relays) }

// Relays returns a copy of the chain in priority order.
func (c Chain) Relays() []Relay {
	out := make([]Relay, len(c.relays))
	copy(out, c.relays)
	return out
}

func (c Chain) Names() []string {
	out := make([]string, len(c.relays))
	for i, r := range c.relays {
		out[i] = r.Name
	}
	return out
}
