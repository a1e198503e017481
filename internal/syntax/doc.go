// Package syntax produces named captures for highlighting.
//
// Two capture sources are provided. TreeSitterSource runs a bundled
// tree-sitter highlight query over a parse tree and covers a handful of
// languages precisely. ChromaSource runs a chroma lexer and covers every
// language chroma knows, with coarser names. NewSource picks between them
// after detecting the language with go-enry.
//
// Both sources take a snapshot of the document when constructed, so they
// can be handed to a background highlighting pass without further locking.
package syntax
