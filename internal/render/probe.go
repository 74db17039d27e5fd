package render

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
)

const probeKey = "engine"

// Status reports the availability of the engine binary.
type Status struct {
	Command   string `json:"command"`
	Path      string `json:"path,omitempty"`
	Available bool   `json:"available"`
	Detail    string `json:"detail,omitempty"`
}

// Prober answers whether the engine binary can be found. Results are cached
// for ttl so request paths do not hit PATH lookups every time.
type Prober struct {
	binary   string
	cache    *cache.Cache
	lookPath func(string) (string, error)
}

// NewProber builds a Prober for binary. A ttl <= 0 disables caching.
func NewProber(binary string, ttl time.Duration) *Prober {
	p := &Prober{
		binary:   strings.TrimSpace(binary),
		lookPath: exec.LookPath,
	}
	if ttl > 0 {
		p.cache = cache.New(ttl, 2*ttl)
	}
	return p
}

// Available reports whether the engine can currently be started.
func (p *Prober) Available(context.Context) bool {
	return p.Check().Available
}

// Check resolves the binary, consulting the cache first.
func (p *Prober) Check() Status {
	if p.cache != nil {
		if v, ok := p.cache.Get(probeKey); ok {
			return v.(Status)
		}
	}
	st := p.lookup()
	if p.cache != nil {
		p.cache.Set(probeKey, st, cache.DefaultExpiration)
	}
	return st
}

func (p *Prober) lookup() Status {
	st := Status{Command: p.binary}
	if p.binary == "" {
		st.Detail = "command not configured"
		return st
	}
	path, err := p.lookPath(p.binary)
	if err != nil {
		st.Detail = fmt.Sprintf("binary %q not found", p.binary)
		return st
	}
	st.Path = path
	st.Available = true
	return st
}
