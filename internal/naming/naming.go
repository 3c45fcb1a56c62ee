// Package naming generates "First Last" profile names from a names sheet.
package naming

import (
	"errors"
	"math/rand"
	"strings"
)

// ErrEmptyPool is returned when there are no first names or no last names.
var ErrEmptyPool = errors.New("naming: name pool is empty")

// Pool holds the candidate names read from the names sheet.
type Pool struct {
	Male   []string
	Female []string
	Last   []string
}

// NewPool builds a pool from three name columns, dropping blank cells.
func NewPool(male, female, last []string) Pool {
	return Pool{Male: clean(male), Female: clean(female), Last: clean(last)}
}

func clean(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Generate returns count random names. The first name is drawn from the male
// and female columns together; the last name is re-drawn while it equals the
// first name, unless no other last name exists.
func Generate(pool Pool, count int, rng *rand.Rand) ([]string, error) {
	if count <= 0 {
		return nil, nil
	}
	first := make([]string, 0, len(pool.Male)+len(pool.Female))
	first = append(first, pool.Male...)
	first = append(first, pool.Female...)
	if len(first) == 0 || len(pool.Last) == 0 {
		return nil, ErrEmptyPool
	}

	distinct := false
	names := make([]string, 0, count)
	for i := 0; i < count; i++ {
		f := first[rng.Intn(len(first))]
		l := pool.Last[rng.Intn(len(pool.Last))]
		if l == f && !distinct {
			distinct = hasOther(pool.Last, f)
		}
		for l == f && distinct {
			l = pool.Last[rng.Intn(len(pool.Last))]
		}
		names = append(names, f+" "+l)
	}
	return names, nil
}

func hasOther(names []string, s string) bool {
	for _, n := range names {
		if n != s {
			return true
		}
	}
	return false
}
