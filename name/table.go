package name

import (
	"strings"
	"sync"

	"github.com/zeebo/xxh3"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// noneText is the display text of entry 0.
const noneText = "None"

type entry struct {
	display string // first spelling interned
	upper   string // canonical comparison text
	hash    uint64
}

// Table interns base strings into stable EntryIDs. Entries are never removed.
// Comparison and hashing are case-insensitive; the first spelling seen is kept
// for display. A Table is safe for concurrent use.
type Table struct {
	mu      sync.RWMutex
	entries []entry
	byHash  map[uint64][]EntryID
}

// casers are not safe for concurrent use, so each interning goroutine borrows one.
var casers = sync.Pool{
	New: func() any {
		c := cases.Upper(language.Und)
		return &c
	},
}

func canonical(s string) string {
	c := casers.Get().(*cases.Caser)
	defer casers.Put(c)
	return c.String(s)
}

// NewTable creates a table holding only the None entry.
func NewTable() *Table {
	t := &Table{
		entries: make([]entry, 0, 256),
		byHash:  make(map[uint64][]EntryID, 256),
	}
	upper := canonical(noneText)
	e := entry{display: noneText, upper: upper, hash: xxh3.HashString(upper)}
	t.entries = append(t.entries, e)
	t.byHash[e.hash] = []EntryID{0}
	return t
}

// Intern returns the Name for text, adding its base string if needed. The
// empty string yields None.
func (t *Table) Intern(text string) Name {
	return t.lookup(text, true)
}

// Find returns the Name for text without adding it; None if the base string
// was never interned.
func (t *Table) Find(text string) Name {
	return t.lookup(text, false)
}

func (t *Table) lookup(text string, add bool) Name {
	if text == "" {
		return None
	}
	base, number := SplitNumber(text)
	upper := canonical(base)
	h := xxh3.HashString(upper)

	t.mu.RLock()
	id, ok := t.findLocked(upper, h)
	t.mu.RUnlock()

	if !ok {
		if !add {
			return None
		}
		t.mu.Lock()
		// Double-check after acquiring write lock
		if id, ok = t.findLocked(upper, h); !ok {
			id = EntryID(len(t.entries))
			t.entries = append(t.entries, entry{display: base, upper: upper, hash: h})
			t.byHash[h] = append(t.byHash[h], id)
		}
		t.mu.Unlock()
	}

	return Name{id: id}.WithNumber(number)
}

func (t *Table) findLocked(upper string, h uint64) (EntryID, bool) {
	for _, id := range t.byHash[h] {
		if t.entries[id].upper == upper {
			return id, true
		}
	}
	return 0, false
}

func (t *Table) entry(id EntryID) (entry, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if int(id) >= len(t.entries) {
		return entry{}, false
	}
	return t.entries[id], true
}

// Resolve returns the display text of n including its numeric suffix, or ""
// for a name not issued by this table.
func (t *Table) Resolve(n Name) string {
	e, ok := t.entry(n.id)
	if !ok {
		return ""
	}
	if n.number == 0 {
		return e.display
	}
	var b strings.Builder
	b.WriteString(e.display)
	appendNumber(&b, n)
	return b.String()
}

// Plain returns the display text of n's base string.
func (t *Table) Plain(n Name) string {
	e, _ := t.entry(n.id)
	return e.display
}

// Hash returns a case-insensitive hash of n that also covers its number.
func (t *Table) Hash(n Name) uint64 {
	e, _ := t.entry(n.id)
	return e.hash ^ (uint64(n.number) * 0x9e3779b97f4a7c15)
}

// BaseHash returns the case-insensitive hash of n's base string only.
func (t *Table) BaseHash(n Name) uint64 {
	e, _ := t.entry(n.id)
	return e.hash
}

// Compare orders names by canonical base text, then by number.
func (t *Table) Compare(a, b Name) int {
	if a.id != b.id {
		ea, _ := t.entry(a.id)
		eb, _ := t.entry(b.id)
		if c := strings.Compare(ea.upper, eb.upper); c != 0 {
			return c
		}
	}
	switch {
	case a.number < b.number:
		return -1
	case a.number > b.number:
		return 1
	}
	return 0
}

// Len returns the number of interned base strings, None included.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}
