// Package rat implements raster attribute tables: per-segment metadata
// stored as one row per label, with columns in four kinds (bool, int64,
// float64 and string) and a neighbour relation between rows.
//
// Every field has a per-kind index, which addresses its column inside the
// homogeneous store of its kind, and a global column number assigned once at
// creation in increasing order. Column access goes through a FieldHandle
// obtained from a schema lookup; typed accessors reject handles of another
// kind.
//
// InMemoryTable keeps all rows in memory. ChunkedTable is bound to one band
// of a store.File and reads and writes its columns directly in the band's
// attribute datasets:
//
//	/BANDn/ATT/HEADER/SIZE                 [rows, bools, ints, floats, strings]
//	/BANDn/ATT/HEADER/CHUNKSIZE            row block size
//	/BANDn/ATT/HEADER/{KIND}_FIELDS        field registry per kind
//	/BANDn/ATT/DATA/{BOOL,INT,FLOAT,STRING} (rows, fields) per kind
//	/BANDn/ATT/NEIGHBOURS/NEIGHBOURS       one uint64 set per row
//
// Export writes any Table into that layout and Open binds a ChunkedTable to
// it.
package rat
