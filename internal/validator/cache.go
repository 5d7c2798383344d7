package validator

// cache memoizes lookups that repeat heavily within a single document:
// per-entity effective field sets (inheritance resolved) and reference-path
// resolutions. Scoped to one Validator instance, cleared on every Validate
// call since the document may have changed.
type cache struct {
	entityFields map[string]map[string]fieldInfo
	refPaths     map[string]refResolution
	hits         int
	misses       int
}

type refResolution struct {
	ok       bool
	segment  string
	entity   string
	siblings []string
}

func newCache() *cache {
	return &cache{
		entityFields: map[string]map[string]fieldInfo{},
		refPaths:     map[string]refResolution{},
	}
}

func (c *cache) clear() {
	if c == nil {
		return
	}
	c.entityFields = map[string]map[string]fieldInfo{}
	c.refPaths = map[string]refResolution{}
}

func (c *cache) fields(entity string) (map[string]fieldInfo, bool) {
	if c == nil {
		return nil, false
	}
	f, ok := c.entityFields[entity]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return f, ok
}

func (c *cache) storeFields(entity string, f map[string]fieldInfo) {
	if c == nil {
		return
	}
	c.entityFields[entity] = f
}

func (c *cache) ref(key string) (refResolution, bool) {
	if c == nil {
		return refResolution{}, false
	}
	r, ok := c.refPaths[key]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return r, ok
}

func (c *cache) storeRef(key string, r refResolution) {
	if c == nil {
		return
	}
	c.refPaths[key] = r
}

// CacheStats reports cache effectiveness for one validator instance.
type CacheStats struct {
	Hits   int `json:"hits"`
	Misses int `json:"misses"`
}
