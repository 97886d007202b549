package util

import "sync"

type Map[K comparable, V any] struct {
	sync.RWMutex
	Map map[K]V
}

func (m *Map[K, V]) Init() {
	m.Map = make(map[K]V)
}

// LoadOrStore returns the existing value for k, or stores and returns the one built by create.
func (m *Map[K, V]) LoadOrStore(k K, create func() V) (v V, loaded bool) {
	m.RLock()
	v, loaded = m.Map[k]
	m.RUnlock()
	if loaded {
		return
	}
	m.Lock()
	defer m.Unlock()
	if v, loaded = m.Map[k]; loaded {
		return
	}
	if m.Map == nil {
		m.Map = make(map[K]V)
	}
	v = create()
	m.Map[k] = v
	return
}

func (m *Map[K, V]) Get(k K) (v V, ok bool) {
	m.RLock()
	defer m.RUnlock()
	v, ok = m.Map[k]
	return
}

func (m *Map[K, V]) Delete(k K) {
	m.Lock()
	delete(m.Map, k)
	m.Unlock()
}

func (m *Map[K, V]) Len() int {
	m.RLock()
	defer m.RUnlock()
	return len(m.Map)
}

func (m *Map[K, V]) ToList() (r []V) {
	m.RLock()
	defer m.RUnlock()
	for _, s := range m.Map {
		r = append(r, s)
	}
	return
}

func (m *Map[K, V]) Range(f func(K, V)) {
	m.RLock()
	defer m.RUnlock()
	for k, s := range m.Map {
		f(k, s)
	}
}
