// Package name interns strings into small comparable Name values.
//
// A Name is an interned base string plus an optional numeric suffix split off
// the source text, so "Door_7" and "Door_9" share the base "Door":
//
//	names := name.NewTable()
//	a := names.Intern("Door_7")
//	b := names.Intern("DOOR")
//	a.Base() == b                // true: case-insensitive
//	n, _ := a.Number()           // 7
//	names.Resolve(a)             // "Door_7"
//
// The empty string interns to None and never creates an entry. Entries are
// never removed, so a Name stays valid for the life of its Table.
package name
