// Package mmap maps blob files read-only so the local blob store can hand
// chunk bytes to the decoder without an intermediate read buffer.
//
// Unix platforms use mmap(2). Other platforms fall back to reading the file
// into memory behind the same API.
package mmap
