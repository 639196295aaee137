package reconcile

import "slices"

// Observer is told about every change to a Group.
type Observer interface {
	ProxyAdded(p *Proxy)
	ProxyUpdated(p *Proxy)
	ProxyRemoved(p *Proxy)
}

// Group is an ordered set of proxies.
type Group struct {
	Name      string
	children  []*Proxy
	observers []Observer
}

func NewGroup(name string) *Group {
	return &Group{Name: name}
}

func (g *Group) Observe(o Observer) {
	g.observers = append(g.observers, o)
}

func (g *Group) Add(p *Proxy) {
	if slices.Contains(g.children, p) {
		return
	}
	g.children = append(g.children, p)
	for _, o := range g.observers {
		o.ProxyAdded(p)
	}
}

// Touch announces that p changed.
func (g *Group) Touch(p *Proxy) {
	for _, o := range g.observers {
		o.ProxyUpdated(p)
	}
}

func (g *Group) Remove(p *Proxy) bool {
	i := slices.Index(g.children, p)
	if i < 0 {
		return false
	}
	g.children = slices.Delete(g.children, i, i+1)
	for _, o := range g.observers {
		o.ProxyRemoved(p)
	}
	return true
}

func (g *Group) Children() []*Proxy { return slices.Clone(g.children) }

func (g *Group) Len() int { return len(g.children) }
