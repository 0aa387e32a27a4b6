// Package archive turns one large compressed NDJSON file into a lazy sequence of text lines
//
// Design choices:
// - Never hold the whole file: decompressed bytes are pulled in fixed-size chunks.
// - Each chunk is validated as UTF-8 before use. A multi-byte character split across a chunk
//   boundary is repaired by reading more, bounded by a decode window.
// - The unterminated tail of a chunk is carried as raw bytes and prefixed to the next chunk.
// - The final unterminated fragment is dropped unless WithFlushTail is set.
// - Progress is the compressed byte count read from the file, not an offset into the text.
package archive
