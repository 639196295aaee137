package reconcile

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// Shape is one of BoxShape, CylinderShape or CapsuleShape.
type Shape interface {
	Kind() string
	shape()
}

// BoxShape is centred on the proxy position.
type BoxShape struct {
	Size mgl32.Vec3
}

// CylinderShape is centred on the proxy position, axis along y.
type CylinderShape struct {
	RadiusTop    float32
	RadiusBottom float32
	Height       float32
	Segments     int
}

// CapsuleShape has a cylindrical section of Length between two hemispheres.
type CapsuleShape struct {
	Radius float32
	Length float32
}

func (BoxShape) Kind() string      { return "box" }
func (CylinderShape) Kind() string { return "cylinder" }
func (CapsuleShape) Kind() string  { return "capsule" }

func (BoxShape) shape()      {}
func (CylinderShape) shape() {}
func (CapsuleShape) shape()  {}

// Proxy is the representation of one tracked entity.
type Proxy struct {
	Name     string
	Shape    Shape
	Position mgl32.Vec3
	Rotation mgl32.Quat
}

func NewProxy(name string, shape Shape) *Proxy {
	return &Proxy{Name: name, Shape: shape, Rotation: mgl32.QuatIdent()}
}

// SetPose moves the proxy and reports whether anything changed.
func (p *Proxy) SetPose(position mgl32.Vec3, rotation mgl32.Quat) bool {
	if p.Position.ApproxEqual(position) && p.Rotation.ApproxEqual(rotation) {
		return false
	}
	p.Position = position
	p.Rotation = rotation
	return true
}

// Transform is the model matrix: rotate, then translate.
func (p *Proxy) Transform() mgl32.Mat4 {
	return mgl32.Translate3D(p.Position.X(), p.Position.Y(), p.Position.Z()).Mul4(p.Rotation.Mat4())
}

func (p *Proxy) String() string {
	return fmt.Sprintf("%s(%s @ %v)", p.Name, p.Shape.Kind(), p.Position)
}
