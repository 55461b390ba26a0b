package octree

// Slot values. Any other value is the id of a child node.
const (
	slotEmpty  uint32 = 0
	slotOpaque uint32 = 0xFFFFFFFF
)

// SlotsPerNode is the per-node budget: one slot per child octant.
const SlotsPerNode = 8

// store keeps node slots in fixed-size square pages so a node id maps to a
// 2D page coordinate with uniform stride, the layout a texture-backed
// implementation would use.
type store struct {
	side     int // slots per page row, a power of 2
	maxPages int
	pages    [][]uint32
	nodes    int
}

func newStore(pageSize, maxPages int) *store {
	if maxPages < 1 {
		maxPages = 1
	}
	return &store{
		side:     nextPowOf2(max(pageSize, 4)),
		maxPages: maxPages,
	}
}

// capacity returns the maximum number of nodes the store can hold.
func (s *store) capacity() int {
	return s.maxPages * s.side * s.side / SlotsPerNode
}

// texCoords maps a linear slot index to its page and 2D position in the page.
func (s *store) texCoords(index int) (page, x, y int) {
	perPage := s.side * s.side
	page = index / perPage
	rem := index % perPage
	return page, rem % s.side, rem / s.side
}

func (s *store) get(index int) uint32 {
	page, x, y := s.texCoords(index)
	if page >= len(s.pages) {
		return slotEmpty
	}
	return s.pages[page][y*s.side+x]
}

func (s *store) set(index int, v uint32) {
	page, x, y := s.texCoords(index)
	s.pages[page][y*s.side+x] = v
}

// alloc reserves a new node and returns its id, or false when out of capacity.
func (s *store) alloc() (uint32, bool) {
	if s.nodes >= s.capacity() {
		return 0, false
	}
	id := s.nodes
	page, _, _ := s.texCoords((id+1)*SlotsPerNode - 1)
	for len(s.pages) <= page {
		s.pages = append(s.pages, make([]uint32, s.side*s.side))
	}
	s.nodes++
	return uint32(id), true
}

// bytes returns the memory held by allocated pages.
func (s *store) bytes() int {
	return len(s.pages) * s.side * s.side * 4
}

func nextPowOf2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
