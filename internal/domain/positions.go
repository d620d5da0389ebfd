package domain

// LayoutMode is one of the independent coordinate spaces a node is placed in
type LayoutMode string

const (
	LayoutTree      LayoutMode = "tree"
	LayoutLego      LayoutMode = "lego"
	LayoutMindmap   LayoutMode = "mindmap"
	LayoutFlowchart LayoutMode = "flowchart"
)

var LayoutModes = []LayoutMode{LayoutTree, LayoutLego, LayoutMindmap, LayoutFlowchart}

func (m LayoutMode) Valid() bool {
	switch m {
	case LayoutTree, LayoutLego, LayoutMindmap, LayoutFlowchart:
		return true
	}
	return false
}

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Positions holds one coordinate pair per layout mode
type Positions struct {
	Tree      Point `json:"tree"`
	Lego      Point `json:"lego"`
	Mindmap   Point `json:"mindmap"`
	Flowchart Point `json:"flowchart"`
}

func (p Positions) Get(mode LayoutMode) (Point, bool) {
	switch mode {
	case LayoutTree:
		return p.Tree, true
	case LayoutLego:
		return p.Lego, true
	case LayoutMindmap:
		return p.Mindmap, true
	case LayoutFlowchart:
		return p.Flowchart, true
	}
	return Point{}, false
}

// Set replaces the coordinate of one layout mode. It reports false for an
// unknown mode and leaves p unchanged.
func (p *Positions) Set(mode LayoutMode, pt Point) bool {
	switch mode {
	case LayoutTree:
		p.Tree = pt
	case LayoutLego:
		p.Lego = pt
	case LayoutMindmap:
		p.Mindmap = pt
	case LayoutFlowchart:
		p.Flowchart = pt
	default:
		return false
	}
	return true
}

// Merge applies every entry of changes, failing on the first unknown mode
func (p *Positions) Merge(changes map[LayoutMode]Point) bool {
	for mode := range changes {
		if !mode.Valid() {
			return false
		}
	}
	for mode, pt := range changes {
		p.Set(mode, pt)
	}
	return true
}
