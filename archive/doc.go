// Package archive provides the binary archive used to persist object fields.
//
// An Archive is a single operator used for both directions: serializers call
// the same method sequence when saving and loading, and IsLoading tells them
// which way data flows. Writer and Reader encode each value as one canonical
// CBOR data item; names travel as text and are re-interned on load.
package archive
