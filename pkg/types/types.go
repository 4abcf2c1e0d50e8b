package types

// Box is a bounding box in corner form, in integer pixel coordinates
type Box struct {
	XMin int `json:"xmin" xml:"xmin"`
	YMin int `json:"ymin" xml:"ymin"`
	XMax int `json:"xmax" xml:"xmax"`
	YMax int `json:"ymax" xml:"ymax"`
}

// Width returns xmax - xmin
func (b Box) Width() int {
	return b.XMax - b.XMin
}

// Height returns ymax - ymin
func (b Box) Height() int {
	return b.YMax - b.YMin
}

// Area returns the box area as a float, computed from the exact integer product
func (b Box) Area() float64 {
	return float64(b.Width() * b.Height())
}

// Extent converts the box to origin+extent form [xmin, ymin, width, height]
func (b Box) Extent() [4]int {
	return [4]int{b.XMin, b.YMin, b.Width(), b.Height()}
}

// BoxFromExtent converts an origin+extent bbox [xmin, ymin, width, height] to corner form
func BoxFromExtent(e [4]int) Box {
	return Box{
		XMin: e[0],
		YMin: e[1],
		XMax: e[0] + e[2],
		YMax: e[1] + e[3],
	}
}

// ImageInfo describes one image: its file name, pixel size and channel depth
type ImageInfo struct {
	Filename string
	Width    int
	Height   int
	Depth    int
}

// Region is one labeled bounding box within an image
type Region struct {
	Label     string
	Pose      string
	Truncated int
	Difficult int
	Box       Box
}

// AnnotatedImage pairs an image with the regions annotated on it
type AnnotatedImage struct {
	Image   ImageInfo
	Regions []Region
	// Source is the descriptor file the record was read from, if any.
	Source string
}

// LabelSet is an ordered set of label names, kept in first-seen order
type LabelSet struct {
	names []string
	index map[string]int
}

// NewLabelSet creates an empty label set
func NewLabelSet() *LabelSet {
	return &LabelSet{index: map[string]int{}}
}

// Add appends name if it has not been seen yet and reports whether it was new
func (s *LabelSet) Add(name string) bool {
	if s.index == nil {
		s.index = map[string]int{}
	}
	if _, ok := s.index[name]; ok {
		return false
	}
	s.index[name] = len(s.names)
	s.names = append(s.names, name)
	return true
}

// Names returns the labels in first-seen order
func (s *LabelSet) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// Len returns the number of distinct labels
func (s *LabelSet) Len() int {
	return len(s.names)
}
