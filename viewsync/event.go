package viewsync

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/gorustyt/navcache/reconcile"
)

type EventType string

const (
	EventAdded   EventType = "added"
	EventUpdated EventType = "updated"
	EventRemoved EventType = "removed"
)

// Shape is the wire form of a reconcile.Shape. Only the fields of Kind are set.
type Shape struct {
	Kind         string      `json:"kind"`
	Size         *mgl32.Vec3 `json:"size,omitempty"`
	RadiusTop    float32     `json:"radius_top,omitempty"`
	RadiusBottom float32     `json:"radius_bottom,omitempty"`
	Height       float32     `json:"height,omitempty"`
	Segments     int         `json:"segments,omitempty"`
	Radius       float32     `json:"radius,omitempty"`
	Length       float32     `json:"length,omitempty"`
}

// Event is one proxy change. Transform is column major.
type Event struct {
	Type      EventType   `json:"type"`
	ID        string      `json:"id"`
	Shape     *Shape      `json:"shape,omitempty"`
	Transform *mgl32.Mat4 `json:"transform,omitempty"`
}

func newEvent(typ EventType, p *reconcile.Proxy) Event {
	ev := Event{Type: typ, ID: p.Name}
	if typ == EventRemoved {
		return ev
	}
	m := p.Transform()
	ev.Transform = &m
	ev.Shape = wireShape(p.Shape)
	return ev
}

func wireShape(s reconcile.Shape) *Shape {
	out := &Shape{Kind: s.Kind()}
	switch s := s.(type) {
	case reconcile.BoxShape:
		size := s.Size
		out.Size = &size
	case reconcile.CylinderShape:
		out.RadiusTop, out.RadiusBottom = s.RadiusTop, s.RadiusBottom
		out.Height, out.Segments = s.Height, s.Segments
	case reconcile.CapsuleShape:
		out.Radius, out.Length = s.Radius, s.Length
	}
	return out
}
