package routing

// Segment identifies a directed edge (From, To, Key).
type Segment struct {
	From int64
	To   int64
	Key  int
}

// Frequency counts prior traversals of directed segments across a walker's
// route history. Lookups use parallel key 0.
type Frequency map[Segment]int

// Count returns the number of prior traversals of from -> to.
func (f Frequency) Count(from, to int64) int {
	return f[Segment{From: from, To: to}]
}

// Has reports whether from -> to appears in the history at all.
func (f Frequency) Has(from, to int64) bool {
	_, ok := f[Segment{From: from, To: to}]
	return ok
}

// AddRoute counts every consecutive pair of route as one traversal.
func (f Frequency) AddRoute(route []int64) {
	for i := 0; i+1 < len(route); i++ {
		f[Segment{From: route[i], To: route[i+1]}]++
	}
}

// traveledSegments returns the directed key-0 segments already walked by
// route.
func traveledSegments(route []int64) map[Segment]bool {
	segs := make(map[Segment]bool, len(route))
	for i := 0; i+1 < len(route); i++ {
		segs[Segment{From: route[i], To: route[i+1]}] = true
	}
	return segs
}
