package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/naveenspark/talk/pkg/domain"
)

func at(sec int) time.Time {
	return time.Date(2024, 1, 1, 0, 0, sec, 0, time.UTC)
}

func TestChannelListOrdersAnyPermutation(t *testing.T) {
	a := domain.Channel{ID: "a", Name: "general", CreatedAt: at(1)}
	b := domain.Channel{ID: "b", Name: "random", CreatedAt: at(2)}
	c := domain.Channel{ID: "c", Name: "later", CreatedAt: at(3)}
	perms := [][]domain.Channel{
		{a, b, c}, {a, c, b}, {b, a, c}, {b, c, a}, {c, a, b}, {c, b, a},
	}
	for _, p := range perms {
		var l ChannelList
		l.Apply(p)
		items := l.Items()
		if items[0].ID != "a" || items[1].ID != "b" || items[2].ID != "c" {
			t.Errorf("Apply(%v) order = %v, want a b c", []string{p[0].ID, p[1].ID, p[2].ID}, []string{items[0].ID, items[1].ID, items[2].ID})
		}
	}
}

func TestChannelListAutoSelect(t *testing.T) {
	a := domain.Channel{ID: "a", CreatedAt: at(1)}
	b := domain.Channel{ID: "b", CreatedAt: at(2)}

	var l ChannelList
	if l.Apply(nil) {
		t.Error("empty snapshot changed the selection")
	}
	if !l.Apply([]domain.Channel{b, a}) {
		t.Fatal("first non-empty snapshot did not select")
	}
	if l.Selected() != "a" {
		t.Errorf("Selected() = %q, want oldest %q", l.Selected(), "a")
	}

	// Already non-empty: user choice is kept.
	l.Select("b")
	l.Apply([]domain.Channel{a, b})
	if l.Selected() != "b" {
		t.Errorf("Selected() = %q, want %q", l.Selected(), "b")
	}
}

func TestChannelListAutoSelectOncePerTransition(t *testing.T) {
	a := domain.Channel{ID: "a", CreatedAt: at(1)}
	b := domain.Channel{ID: "b", CreatedAt: at(2)}

	var l ChannelList
	l.Apply([]domain.Channel{a})
	l.Select("")
	// Still non-empty, nothing selected: no second auto-select.
	if l.Apply([]domain.Channel{a, b}) {
		t.Error("auto-selected without an empty to non-empty transition")
	}
	l.Apply(nil)
	if !l.Apply([]domain.Channel{b}) {
		t.Error("no auto-select after list became non-empty again")
	}
	if l.Selected() != "b" {
		t.Errorf("Selected() = %q, want %q", l.Selected(), "b")
	}
}

func TestChannelListKeepsVanishedSelection(t *testing.T) {
	a := domain.Channel{ID: "a", CreatedAt: at(1)}
	b := domain.Channel{ID: "b", CreatedAt: at(2)}
	var l ChannelList
	l.Apply([]domain.Channel{a, b})
	l.Select("b")
	l.Apply([]domain.Channel{a})
	if l.Selected() != "b" {
		t.Errorf("Selected() = %q, want %q", l.Selected(), "b")
	}
	if _, ok := l.SelectedChannel(); ok {
		t.Error("SelectedChannel() ok for a channel that is gone")
	}
}

func TestChannelListApplyCopies(t *testing.T) {
	in := []domain.Channel{{ID: "b", CreatedAt: at(2)}, {ID: "a", CreatedAt: at(1)}}
	var l ChannelList
	l.Apply(in)
	if in[0].ID != "b" {
		t.Error("Apply sorted the caller's slice")
	}
}

func TestChannelDirectoryCreate(t *testing.T) {
	store := newFakeStore()
	d := NewChannelDirectory(store, discardLogger())

	for _, name := range []string{"", "   ", "\t\n"} {
		if _, err := d.Create(context.Background(), name); !errors.Is(err, domain.ErrEmptyName) {
			t.Errorf("Create(%q) error = %v, want %v", name, err, domain.ErrEmptyName)
		}
	}
	if calls := store.Calls(); len(calls) != 0 {
		t.Fatalf("store calls = %v, want none", calls)
	}

	c, err := d.Create(context.Background(), "  general ")
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if c.Name != "general" {
		t.Errorf("Name = %q, want %q", c.Name, "general")
	}
	if c.ID == "" || c.CreatedAt.IsZero() {
		t.Errorf("channel = %+v, want backend-assigned id and timestamp", c)
	}
}

func TestChannelDirectoryWatch(t *testing.T) {
	store := newFakeStore()
	d := NewChannelDirectory(store, discardLogger())
	f := d.Watch(context.Background())
	defer f.Cancel()

	first := <-f.C()
	if len(first.Items) != 0 {
		t.Fatalf("initial snapshot = %v, want empty", first.Items)
	}
	if _, err := d.Create(context.Background(), "general"); err != nil {
		t.Fatal(err)
	}
	select {
	case s := <-f.C():
		if len(s.Items) != 1 || s.Items[0].Name != "general" {
			t.Errorf("snapshot = %v, want [general]", s.Items)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot after create")
	}
}
