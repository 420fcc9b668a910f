// Package cursor defines the protocol implemented by lowered generators.
//
// A generator is a function that produces a sequence of values through calls
// to Yield. The compiler in the compiler package rewrites every generator into
// a cursor object: an instance of a synthesized class holding the generator's
// captured state, with methods that advance a resumable state machine one
// yield at a time.
package cursor

// ID is an opaque resume position threaded through the protocol methods of
// a cursor object.
//
// Done always means that iteration is finished and Start is only ever used as
// the initial position fed to GetNextCursor by GetHeadCursor. Objects produced
// by the general lowering engine number their yield points from First in
// source order. Objects produced by the single loop engine use the ID as the
// loop continue condition instead, where any non-zero value is valid.
type ID int64

const (
	Done  ID = 0
	Start ID = 1
	First ID = 2
)

// Iterator is the set of methods available on every cursor object.
type Iterator[T any] interface {
	// GetHeadCursor runs the generator up to its first yield point.
	GetHeadCursor() ID
	// GetNextCursor resumes the generator from c and runs it up to the next
	// yield point.
	GetNextCursor(c ID) ID
	// IsValidCursor reports whether c denotes a yield point.
	IsValidCursor(c ID) bool
	// GetValue returns the value produced at the yield point c. It does not
	// advance the generator.
	GetValue(c ID) T

	// The zip methods split advancement in two halves so that several
	// iterators can be driven in lock-step. See Zip.
	GetZipCursor1() ID
	GetZipCursor2(c ID) ID
	GetZipCursor3(c ID) ID
	GetZipCursor4(c ID) ID
}

// Run drives it to completion, calling f for each value that the generator
// yields. Iteration stops early if f returns false.
func Run[T any](it Iterator[T], f func(T) bool) {
	for c := it.GetHeadCursor(); it.IsValidCursor(c); c = it.GetNextCursor(c) {
		if !f(it.GetValue(c)) {
			return
		}
	}
}

// Collect drives it to completion and returns the values it yields.
func Collect[T any](it Iterator[T]) (values []T) {
	Run(it, func(v T) bool {
		values = append(values, v)
		return true
	})
	return
}

// Zip drives iterators in lock-step, calling f with one value of each per
// round. Iteration stops as soon as one of the iterators is exhausted, or
// when f returns false.
//
// The values slice passed to f is reused across rounds.
func Zip[T any](f func(values []T) bool, iterators ...Iterator[T]) {
	if len(iterators) == 0 {
		return
	}
	cursors := make([]ID, len(iterators))
	values := make([]T, len(iterators))

	for i, it := range iterators {
		cursors[i] = it.GetZipCursor1()
	}
	for {
		valid := true
		for i, it := range iterators {
			cursors[i] = it.GetZipCursor2(cursors[i])
			if !it.IsValidCursor(cursors[i]) {
				valid = false
			}
		}
		if !valid {
			break
		}
		for i, it := range iterators {
			values[i] = it.GetValue(cursors[i])
		}
		if !f(values) {
			break
		}
		for i, it := range iterators {
			cursors[i] = it.GetZipCursor3(cursors[i])
		}
	}
	for i, it := range iterators {
		cursors[i] = it.GetZipCursor4(cursors[i])
	}
}

// Yield marks a yield point in a Go generator function. Generators are
// recognized by the compiler through calls to this function.
//
// The function panics when called from code that was not lowered.
func Yield[T any](v T) {
	panic("cursor.Yield: called outside of a lowered generator")
}
