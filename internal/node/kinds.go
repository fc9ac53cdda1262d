package node

import (
	"fmt"
	"slices"

	"github.com/slicer/sequences/internal/ir"
)

// Transform holds a row-major 4x4 matrix.
type Transform struct {
	Base
	Matrix [16]float64
}

// NewTransform returns an identity transform.
func NewTransform() *Transform {
	t := &Transform{}
	t.init(t, ClassTransform)
	t.Matrix = identity()
	return t
}

func identity() [16]float64 {
	var m [16]float64
	m[0], m[5], m[10], m[15] = 1, 1, 1, 1
	return m
}

// CopyContent copies the matrix of src, which must be a Transform.
func (t *Transform) CopyContent(src Node, _ bool) error {
	if err := checkClass(t, src); err != nil {
		return err
	}
	t.Matrix = src.(*Transform).Matrix
	t.Modified()
	return nil
}

// Content encodes the matrix as 16 floats under "matrix".
func (t *Transform) Content() ir.Object {
	return ir.Object{"matrix": ir.Floats(t.Matrix[:])}
}

// SetContent decodes the form written by Content.
func (t *Transform) SetContent(content ir.Object) error {
	m, err := ir.AsFloats(content["matrix"])
	if err != nil {
		return fmt.Errorf("transform matrix: %w", err)
	}
	if len(m) != 16 {
		return fmt.Errorf("transform matrix: want 16 values, got %d", len(m))
	}
	copy(t.Matrix[:], m)
	t.Modified()
	return nil
}

// Scalar holds one measured value with its unit.
type Scalar struct {
	Base
	Value float64
	Unit  string
}

// NewScalar returns a zero Scalar with no unit.
func NewScalar() *Scalar {
	s := &Scalar{}
	s.init(s, ClassScalar)
	return s
}

// CopyContent copies the value and unit of src.
func (s *Scalar) CopyContent(src Node, _ bool) error {
	if err := checkClass(s, src); err != nil {
		return err
	}
	o := src.(*Scalar)
	s.Value, s.Unit = o.Value, o.Unit
	s.Modified()
	return nil
}

// Content encodes the value and unit.
func (s *Scalar) Content() ir.Object {
	return ir.Object{"value": ir.Float(s.Value), "unit": ir.String(s.Unit)}
}

// SetContent decodes the form written by Content. A missing unit is empty.
func (s *Scalar) SetContent(content ir.Object) error {
	v, err := ir.AsFloat(content["value"])
	if err != nil {
		return fmt.Errorf("scalar value: %w", err)
	}
	s.Value = v
	s.Unit = content.String("unit")
	s.Modified()
	return nil
}

// Text holds free text.
type Text struct {
	Base
	Text string
}

// NewText returns an empty Text.
func NewText() *Text {
	t := &Text{}
	t.init(t, ClassText)
	return t
}

// CopyContent copies the text of src.
func (t *Text) CopyContent(src Node, _ bool) error {
	if err := checkClass(t, src); err != nil {
		return err
	}
	t.Text = src.(*Text).Text
	t.Modified()
	return nil
}

// Content encodes the text under "text".
func (t *Text) Content() ir.Object {
	return ir.Object{"text": ir.String(t.Text)}
}

// SetContent decodes the form written by Content.
func (t *Text) SetContent(content ir.Object) error {
	t.Text = content.String("text")
	t.Modified()
	return nil
}

// Display is the display state carried by Curve and Volume.
type Display struct {
	Visible bool
	Color   string
}

// DefaultDisplayColor is the color given to newly created displays.
const DefaultDisplayColor = "#e6b34d"

// Point is a position in millimeters.
type Point [3]float64

// Curve is an ordered list of control points.
type Curve struct {
	Base
	Points  []Point
	Display *Display
}

// NewCurve returns a curve with no points and no display.
func NewCurve() *Curve {
	c := &Curve{}
	c.init(c, ClassCurve)
	return c
}

// CopyContent shares the point buffer on a shallow copy.
func (c *Curve) CopyContent(src Node, deep bool) error {
	if err := checkClass(c, src); err != nil {
		return err
	}
	o := src.(*Curve)
	if deep {
		c.Points = slices.Clone(o.Points)
	} else {
		c.Points = o.Points
	}
	c.Modified()
	return nil
}

// CreateDefaultDisplay adds a visible display unless one exists.
func (c *Curve) CreateDefaultDisplay() {
	if c.Display == nil {
		c.Display = &Display{Visible: true, Color: DefaultDisplayColor}
	}
}

// Content encodes the points as a list of coordinate triples. The display
// is not part of the content.
func (c *Curve) Content() ir.Object {
	pts := make(ir.List, len(c.Points))
	for i, p := range c.Points {
		pts[i] = ir.Floats(p[:])
	}
	return ir.Object{"points": pts}
}

// SetContent decodes the form written by Content. Missing points clear
// the curve.
func (c *Curve) SetContent(content ir.Object) error {
	var pts []Point
	if raw, ok := content["points"]; ok {
		list, ok := raw.(ir.List)
		if !ok {
			return fmt.Errorf("curve points: expected list, got %T", raw)
		}
		pts = make([]Point, len(list))
		for i, elem := range list {
			xyz, err := ir.AsFloats(elem)
			if err != nil {
				return fmt.Errorf("curve point %d: %w", i, err)
			}
			if len(xyz) != 3 {
				return fmt.Errorf("curve point %d: want 3 coordinates, got %d", i, len(xyz))
			}
			pts[i] = Point{xyz[0], xyz[1], xyz[2]}
		}
	}
	c.Points = pts
	c.Modified()
	return nil
}

// Volume is a dense voxel grid.
type Volume struct {
	Base
	Dims    [3]int
	Spacing [3]float64
	Voxels  []float64
	Display *Display
}

// NewVolume returns an empty volume with unit spacing.
func NewVolume() *Volume {
	v := &Volume{}
	v.init(v, ClassVolume)
	v.Spacing = [3]float64{1, 1, 1}
	return v
}

// CopyContent shares the voxel buffer on a shallow copy.
func (v *Volume) CopyContent(src Node, deep bool) error {
	if err := checkClass(v, src); err != nil {
		return err
	}
	o := src.(*Volume)
	v.Dims, v.Spacing = o.Dims, o.Spacing
	if deep {
		v.Voxels = slices.Clone(o.Voxels)
	} else {
		v.Voxels = o.Voxels
	}
	v.Modified()
	return nil
}

// CreateDefaultDisplay adds a visible display unless one exists.
func (v *Volume) CreateDefaultDisplay() {
	if v.Display == nil {
		v.Display = &Display{Visible: true, Color: DefaultDisplayColor}
	}
}

// Content encodes dims, spacing and voxels.
func (v *Volume) Content() ir.Object {
	return ir.Object{
		"dims":    ir.List{ir.Int(v.Dims[0]), ir.Int(v.Dims[1]), ir.Int(v.Dims[2])},
		"spacing": ir.Floats(v.Spacing[:]),
		"voxels":  ir.Floats(v.Voxels),
	}
}

// SetContent decodes the form written by Content.
func (v *Volume) SetContent(content ir.Object) error {
	dims, ok := content["dims"].(ir.List)
	if !ok || len(dims) != 3 {
		return fmt.Errorf("volume dims: want list of 3 integers")
	}
	var d [3]int
	for i, elem := range dims {
		n, ok := elem.(ir.Int)
		if !ok || n < 0 {
			return fmt.Errorf("volume dims[%d]: want non-negative integer", i)
		}
		d[i] = int(n)
	}
	spacing := []float64{1, 1, 1}
	if raw, ok := content["spacing"]; ok {
		s, err := ir.AsFloats(raw)
		if err != nil {
			return fmt.Errorf("volume spacing: %w", err)
		}
		if len(s) != 3 {
			return fmt.Errorf("volume spacing: want 3 values, got %d", len(s))
		}
		spacing = s
	}
	var voxels []float64
	if raw, ok := content["voxels"]; ok {
		vs, err := ir.AsFloats(raw)
		if err != nil {
			return fmt.Errorf("volume voxels: %w", err)
		}
		voxels = vs
	}
	if want := d[0] * d[1] * d[2]; len(voxels) != want {
		return fmt.Errorf("volume voxels: dims %v need %d values, got %d", d, want, len(voxels))
	}
	v.Dims = d
	copy(v.Spacing[:], spacing)
	v.Voxels = voxels
	v.Modified()
	return nil
}
