package name

import (
	"fmt"
	"sync"
	"testing"
)

func TestSplitNumber(t *testing.T) {
	tests := []struct {
		in     string
		base   string
		number int
	}{
		{"Foo", "Foo", NoNumber},
		{"Foo_3", "Foo", 3},
		{"Foo_0", "Foo", 0},
		{"Foo_03", "Foo_03", NoNumber},
		{"Foo_", "Foo_", NoNumber},
		{"Foo3", "Foo3", NoNumber},
		{"_3", "_3", NoNumber},
		{"A_B_12", "A_B", 12},
		{"Foo_2147483646", "Foo", 2147483646},
		{"Foo_2147483647", "Foo_2147483647", NoNumber},
		{"Foo_99999999999", "Foo_99999999999", NoNumber},
		{"", "", NoNumber},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			base, number := SplitNumber(tt.in)
			if base != tt.base || number != tt.number {
				t.Errorf("SplitNumber(%q) = (%q, %d), want (%q, %d)", tt.in, base, number, tt.base, tt.number)
			}
		})
	}
}

func TestIntern_CaseInsensitive(t *testing.T) {
	names := NewTable()

	a := names.Intern("Foo")
	b := names.Intern("FOO")
	c := names.Intern("foo")
	if a != b || b != c {
		t.Fatalf("case variants differ: %v %v %v", a, b, c)
	}
	if names.Resolve(b) != "Foo" {
		t.Errorf("display = %q, want first spelling %q", names.Resolve(b), "Foo")
	}
	if names.Hash(a) != names.Hash(c) {
		t.Error("hash must be case-insensitive")
	}
}

func TestIntern_NumberSuffix(t *testing.T) {
	names := NewTable()

	foo := names.Intern("Foo")
	foo3 := names.Intern("Foo_3")
	if foo3.Base() != foo {
		t.Fatalf("base of Foo_3 = %v, want %v", foo3.Base(), foo)
	}
	n, ok := foo3.Number()
	if !ok || n != 3 {
		t.Fatalf("Number = %d, %v", n, ok)
	}
	if _, ok := foo.Number(); ok {
		t.Fatal("Foo must not carry a number")
	}
	if foo3 == names.Intern("Foo_9") {
		t.Fatal("different suffixes must not be equal")
	}
	if names.Resolve(foo3) != "Foo_3" {
		t.Errorf("Resolve = %q", names.Resolve(foo3))
	}
	if names.Plain(foo3) != "Foo" {
		t.Errorf("Plain = %q", names.Plain(foo3))
	}
	if names.Len() != 2 {
		t.Errorf("Len = %d, want 2 (None + Foo)", names.Len())
	}
}

func TestIntern_None(t *testing.T) {
	names := NewTable()
	before := names.Len()

	if !names.Intern("").IsNone() {
		t.Fatal("empty string must intern to None")
	}
	if names.Intern("none") != None {
		t.Fatal("\"none\" must resolve to the reserved entry")
	}
	if names.Len() != before {
		t.Fatal("interning the empty string must not add an entry")
	}
	if names.Resolve(None) != "None" {
		t.Errorf("Resolve(None) = %q", names.Resolve(None))
	}
}

func TestFind(t *testing.T) {
	names := NewTable()
	if !names.Find("Missing").IsNone() {
		t.Fatal("Find must not add")
	}
	if names.Len() != 1 {
		t.Fatal("Find added an entry")
	}
	n := names.Intern("Present")
	if names.Find("PRESENT_4") != n.WithNumber(4) {
		t.Fatal("Find must match case-insensitively and keep the number")
	}
}

func TestWithNumber(t *testing.T) {
	names := NewTable()
	n := names.Intern("Bar_5")
	if n.WithNumber(NoNumber) != names.Intern("Bar") {
		t.Error("NoNumber must strip the suffix")
	}
	if names.Resolve(n.WithNumber(12)) != "Bar_12" {
		t.Errorf("Resolve = %q", names.Resolve(n.WithNumber(12)))
	}
}

func TestCompare(t *testing.T) {
	names := NewTable()
	a := names.Intern("alpha")
	b := names.Intern("Beta")
	if names.Compare(a, b) >= 0 {
		t.Error("alpha must sort before Beta")
	}
	if names.Compare(a.WithNumber(1), a.WithNumber(2)) >= 0 {
		t.Error("lower number must sort first")
	}
	if names.Compare(names.Intern("ALPHA"), a) != 0 {
		t.Error("case variants must compare equal")
	}
}

func TestResolve_UnknownName(t *testing.T) {
	names := NewTable()
	other := NewTable()
	for i := 0; i < 5; i++ {
		other.Intern(fmt.Sprintf("x%d", i))
	}
	if got := names.Resolve(other.Intern("x4")); got != "" {
		t.Errorf("Resolve of foreign name = %q", got)
	}
}

func TestIntern_Concurrent(t *testing.T) {
	names := NewTable()
	var wg sync.WaitGroup
	results := make([][]Name, 8)

	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				results[g] = append(results[g], names.Intern(fmt.Sprintf("Sym%d", i)))
			}
		}(g)
	}
	wg.Wait()

	for g := 1; g < 8; g++ {
		for i := range results[0] {
			if results[g][i] != results[0][i] {
				t.Fatalf("goroutine %d got %v for Sym%d, want %v", g, results[g][i], i, results[0][i])
			}
		}
	}
	if names.Len() != 101 {
		t.Fatalf("Len = %d, want 101", names.Len())
	}
}

func FuzzSplitNumber(f *testing.F) {
	for _, s := range []string{"Foo", "Foo_1", "Foo_01", "_", "a_0", "x_2147483647"} {
		f.Add(s)
	}
	f.Fuzz(func(t *testing.T, s string) {
		base, number := SplitNumber(s)
		if number == NoNumber {
			if base != s {
				t.Fatalf("no number but base changed: %q -> %q", s, base)
			}
			return
		}
		if number < 0 {
			t.Fatalf("negative number %d", number)
		}
		if want := fmt.Sprintf("%s_%d", base, number); want != s {
			t.Fatalf("round trip %q -> (%q, %d) -> %q", s, base, number, want)
		}
	})
}

func BenchmarkIntern_Existing(b *testing.B) {
	names := NewTable()
	names.Intern("PlayerController")
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		names.Intern("PlayerController_12")
	}
}
