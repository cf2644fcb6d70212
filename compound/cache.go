package compound

import (
	"sync"

	"golang.org/x/sync/singleflight"
	"golang.org/x/xerrors"

	"github.com/filecoin-project/go-proofs/hasher"
)

// ParamCache builds each parameter set once. Concurrent callers asking for
// the same ID wait for the first build; later readers never block on it.
type ParamCache struct {
	engine Engine

	group singleflight.Group

	lk      sync.RWMutex
	entries map[ParamsID]*Params
}

func NewParamCache(engine Engine) *ParamCache {
	return &ParamCache{
		engine:  engine,
		entries: map[ParamsID]*Params{},
	}
}

func (c *ParamCache) Engine() Engine {
	return c.engine
}

func (c *ParamCache) lookup(id ParamsID) (*Params, bool) {
	c.lk.RLock()
	defer c.lk.RUnlock()
	p, ok := c.entries[id]
	return p, ok
}

// Get returns the parameters for id, building them on first use. It fails
// with ErrConfigMismatch if the cached parameters were built for different
// scheme settings.
func (c *ParamCache) Get(id ParamsID, schemeDigest hasher.Domain) (*Params, error) {
	p, ok := c.lookup(id)
	if !ok {
		v, err, _ := c.group.Do(id.String(), func() (interface{}, error) {
			if p, ok := c.lookup(id); ok {
				return p, nil
			}

			log.Infow("generating proof parameters", "id", id.String())
			p, err := c.engine.GenerateParams(id, schemeDigest)
			if err != nil {
				return nil, err
			}

			c.lk.Lock()
			c.entries[id] = p
			c.lk.Unlock()
			return p, nil
		})
		if err != nil {
			return nil, xerrors.Errorf("getting params %s: %w", id, err)
		}
		p = v.(*Params)
	}

	if p.SchemeDigest != schemeDigest {
		return nil, xerrors.Errorf("params %s: %w", id, ErrConfigMismatch)
	}
	return p, nil
}

// Len is the number of cached parameter sets.
func (c *ParamCache) Len() int {
	c.lk.RLock()
	defer c.lk.RUnlock()
	return len(c.entries)
}
