package core

// MarkerValue is the current value of one marker occurrence.
type MarkerValue struct {
	Pos   int
	Name  string
	Value string
}

// MarkerChange records one rewrite applied to a marker occurrence.
type MarkerChange struct {
	Pos  int
	Name string
	Old  string
	New  string
}
