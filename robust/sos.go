package robust

import (
	"math/big"
	"sort"

	"github.com/golang/geo/r3"
)

// Point is a position tagged with a globally unique index. Indices order the symbolic
// perturbation: the point with the lowest index receives the largest perturbation.
type Point struct {
	Pos   r3.Vector
	Index int
}

// sosTerm is one monomial of the perturbed 4x4 orientation determinant. The perturbation of row r,
// coordinate column c is eps^(2^(3r+2-c)), so mask holds the exponent of the monomial and ordering
// terms by mask orders them from dominant to negligible.
type sosTerm struct {
	mask uint
	rows []int
	cols []int
	sign int
}

var sosTerms = buildSoSTerms()

func buildSoSTerms() []sosTerm {
	var terms []sosTerm
	var rowSets, colSets [][]int
	for m := 0; m < 1<<4; m++ {
		rowSets = append(rowSets, bitsOf(m, 4))
	}
	for m := 0; m < 1<<3; m++ {
		colSets = append(colSets, bitsOf(m, 3))
	}
	for _, rows := range rowSets {
		for _, cols := range colSets {
			if len(rows) != len(cols) {
				continue
			}
			for _, perm := range permutations(len(rows)) {
				mask := uint(0)
				base := 0
				for a, r := range rows {
					c := cols[perm[a]]
					mask |= 1 << uint(3*r+2-c)
					base += r + c
				}
				sign := permutationSign(perm)
				if base%2 == 1 {
					sign = -sign
				}
				terms = append(terms, sosTerm{mask: mask, rows: rows, cols: cols, sign: sign})
			}
		}
	}
	sort.Slice(terms, func(i, j int) bool { return terms[i].mask < terms[j].mask })
	return terms
}

func bitsOf(m, n int) []int {
	var out []int
	for i := 0; i < n; i++ {
		if m&(1<<i) != 0 {
			out = append(out, i)
		}
	}
	return out
}

func permutations(n int) [][]int {
	if n == 0 {
		return [][]int{{}}
	}
	var out [][]int
	for _, p := range permutations(n - 1) {
		for pos := 0; pos <= len(p); pos++ {
			q := make([]int, 0, n)
			q = append(q, p[:pos]...)
			q = append(q, n-1)
			q = append(q, p[pos:]...)
			out = append(out, q)
		}
	}
	return out
}

func permutationSign(p []int) int {
	sign := 1
	for i := 0; i < len(p); i++ {
		for j := i + 1; j < len(p); j++ {
			if p[i] > p[j] {
				sign = -sign
			}
		}
	}
	return sign
}

// Orient3DSoS is Orient3D with exact zeros broken by Simulation of Simplicity. It never returns 0
// for four distinctly indexed points, and swapping any two arguments negates the result.
func Orient3DSoS(a, b, c, d Point) int {
	if s := Orient3D(a.Pos, b.Pos, c.Pos, d.Pos); s != 0 {
		return s
	}
	return orient3DSymbolic([4]Point{a, b, c, d})
}

func orient3DSymbolic(pts [4]Point) int {
	order := []int{0, 1, 2, 3}
	sort.SliceStable(order, func(i, j int) bool { return pts[order[i]].Index < pts[order[j]].Index })
	parity := permutationSign(order)

	// rows are (x, y, z, 1) in index order; det of this matrix is -orient.
	var m [4][4]*big.Float
	for r, k := range order {
		p := pts[k].Pos
		m[r] = [4]*big.Float{
			newBigFloat().SetFloat64(p.X),
			newBigFloat().SetFloat64(p.Y),
			newBigFloat().SetFloat64(p.Z),
			newBigFloat().SetFloat64(1),
		}
	}

	for _, term := range sosTerms {
		minor := exactMinor(&m, complement(term.rows, 4), complement(term.cols, 4))
		if s := minor.Sign(); s != 0 {
			return -parity * term.sign * s
		}
	}
	// unreachable: the minor left by any complete matching is the constant 1.
	return 1
}

func complement(set []int, n int) []int {
	out := make([]int, 0, n-len(set))
	j := 0
	for i := 0; i < n; i++ {
		if j < len(set) && set[j] == i {
			j++
			continue
		}
		out = append(out, i)
	}
	return out
}

// exactMinor returns the determinant of m restricted to rows and cols by cofactor expansion.
func exactMinor(m *[4][4]*big.Float, rows, cols []int) *big.Float {
	switch len(rows) {
	case 0:
		return newBigFloat().SetFloat64(1)
	case 1:
		return newBigFloat().Set(m[rows[0]][cols[0]])
	}
	det := newBigFloat()
	for j, c := range cols {
		if m[rows[0]][c].Sign() == 0 {
			continue
		}
		sub := make([]int, 0, len(cols)-1)
		sub = append(sub, cols[:j]...)
		sub = append(sub, cols[j+1:]...)
		term := newBigFloat().Mul(m[rows[0]][c], exactMinor(m, rows[1:], sub))
		if j%2 == 1 {
			det.Sub(det, term)
		} else {
			det.Add(det, term)
		}
	}
	return det
}
