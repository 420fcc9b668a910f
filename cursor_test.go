package cursor_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/stealthrocket/cursor"
)

// countdown is a hand-lowered version of:
//
//	func countdown(n int) {
//		for ; n > 0; n-- {
//			cursor.Yield(n)
//		}
//	}
type countdown struct {
	n     int
	value int
}

func (c *countdown) next(id cursor.ID) cursor.ID {
	switch id {
	case 2:
		c.n--
	}
	if c.n > 0 {
		c.value = c.n
		return 2
	}
	return cursor.Done
}

func (c *countdown) GetHeadCursor() cursor.ID { return c.next(cursor.Start) }
func (c *countdown) GetNextCursor(id cursor.ID) cursor.ID { return c.next(id) }
func (c *countdown) IsValidCursor(id cursor.ID) bool { return id != cursor.Done }
func (c *countdown) GetValue(cursor.ID) int { return c.value }
func (c *countdown) GetZipCursor1() cursor.ID { return c.GetHeadCursor() }
func (c *countdown) GetZipCursor2(id cursor.ID) cursor.ID { return id }
func (c *countdown) GetZipCursor3(id cursor.ID) cursor.ID { return c.next(id) }
func (c *countdown) GetZipCursor4(id cursor.ID) cursor.ID { return id }

func TestCollect(t *testing.T) {
	for _, test := range []struct {
		name string
		n    int
		want []int
	}{
		{name: "empty", n: 0, want: nil},
		{name: "one", n: 1, want: []int{1}},
		{name: "many", n: 4, want: []int{4, 3, 2, 1}},
	} {
		t.Run(test.name, func(t *testing.T) {
			got := cursor.Collect[int](&countdown{n: test.n})
			if diff := cmp.Diff(test.want, got); diff != "" {
				t.Fatalf("values mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRunStopsEarly(t *testing.T) {
	var got []int
	cursor.Run[int](&countdown{n: 10}, func(v int) bool {
		got = append(got, v)
		return len(got) < 3
	})
	if diff := cmp.Diff([]int{10, 9, 8}, got); diff != "" {
		t.Fatalf("values mismatch (-want +got):\n%s", diff)
	}
}

func TestZip(t *testing.T) {
	var got [][]int
	cursor.Zip(func(values []int) bool {
		got = append(got, append([]int{}, values...))
		return true
	}, cursor.Iterator[int](&countdown{n: 3}), &countdown{n: 5})

	want := [][]int{{3, 5}, {2, 4}, {1, 3}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("values mismatch (-want +got):\n%s", diff)
	}
}

func TestZipSingleEqualsCollect(t *testing.T) {
	var got []int
	cursor.Zip(func(values []int) bool {
		got = append(got, values[0])
		return true
	}, cursor.Iterator[int](&countdown{n: 6}))

	want := cursor.Collect[int](&countdown{n: 6})
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("values mismatch (-want +got):\n%s", diff)
	}
}

func TestYieldPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("Yield did not panic")
		}
	}()
	cursor.Yield(1)
}
