package list_test

import (
	"testing"

	"extendb/pkg/list"
)

func TestPushAndOrder(t *testing.T) {
	l := list.NewList[int]()
	l.PushTail(1)
	l.PushTail(2)
	l.PushHead(0)

	var got []int
	l.Map(func(link *list.Link[int]) { got = append(got, link.GetValue()) })

	want := []int{0, 1, 2}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestPopSelfMiddle(t *testing.T) {
	l := list.NewList[string]()
	l.PushTail("a")
	mid := l.PushTail("b")
	l.PushTail("c")

	mid.PopSelf()

	var got []string
	l.Map(func(link *list.Link[string]) { got = append(got, link.GetValue()) })
	if len(got) != 2 || got[0] != "a" || got[1] != "c" {
		t.Fatalf("got %v, want [a c]", got)
	}
	if mid.GetList() != nil {
		t.Fatal("popped link should no longer belong to a list")
	}
}

func TestPopSelfOnlyLink(t *testing.T) {
	l := list.NewList[int]()
	link := l.PushTail(42)
	link.PopSelf()

	if l.PeekHead() != nil || l.PeekTail() != nil {
		t.Fatal("list should be empty after popping its only link")
	}
}

func TestFind(t *testing.T) {
	l := list.NewList[int]()
	l.PushTail(1)
	l.PushTail(2)
	l.PushTail(3)

	found := l.Find(func(link *list.Link[int]) bool { return link.GetValue() == 2 })
	if found == nil || found.GetValue() != 2 {
		t.Fatalf("expected to find 2, got %v", found)
	}

	notFound := l.Find(func(link *list.Link[int]) bool { return link.GetValue() == 99 })
	if notFound != nil {
		t.Fatalf("expected nil, got %v", notFound)
	}
}

func TestLen(t *testing.T) {
	l := list.NewList[int]()
	if l.Len() != 0 {
		t.Fatalf("expected empty list to have length 0, got %d", l.Len())
	}
	l.PushTail(1)
	l.PushHead(0)
	if l.Len() != 2 {
		t.Fatalf("expected length 2, got %d", l.Len())
	}
}
