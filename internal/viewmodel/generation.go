// Package viewmodel holds the pieces shared by the client's view-models.
//
// A view-model issues fetches in the background and applies their results
// later. Each fetch captures a Token from the view-model's Generation and
// applies state only while that token is still current, so closing a view
// or retargeting it turns late results into no-ops.
package viewmodel

import "sync/atomic"

// Token identifies one generation of a view
type Token uint64

// Generation is a monotonically increasing counter. The zero value is ready
// to use.
type Generation struct {
	n atomic.Uint64
}

// Next starts a new generation and returns its token. Tokens from earlier
// generations stop being current.
func (g *Generation) Next() Token {
	return Token(g.n.Add(1))
}

// Invalidate ends the current generation without starting a fetch
func (g *Generation) Invalidate() {
	g.n.Add(1)
}

// Current reports whether tok is from the latest generation
func (g *Generation) Current(tok Token) bool {
	return g.n.Load() == uint64(tok)
}

// Region is the loading/error/data triple of one async section
type Region[T any] struct {
	Loading bool
	Err     string
	Data    *T
}

// Begin marks the region as loading and clears the previous error
func (r *Region[T]) Begin() {
	r.Loading = true
	r.Err = ""
}

// Succeed stores data and ends loading
func (r *Region[T]) Succeed(data *T) {
	r.Loading = false
	r.Err = ""
	r.Data = data
}

// Fail stores an error message and ends loading. Data from an earlier
// success is kept.
func (r *Region[T]) Fail(msg string) {
	r.Loading = false
	r.Err = msg
}

// Reset clears the region
func (r *Region[T]) Reset() {
	*r = Region[T]{}
}
