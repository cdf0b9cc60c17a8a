// Package validate decides whether a proposed update may supersede the page
// it targets.
//
// The decision reads the permission carried by the predecessor, never the
// permission on the incoming page:
//
//	AuthorOnly  accept iff the submitting agent authored the predecessor
//	Others      accept
//
// An unresolvable target is a rejection. A store that cannot answer is an
// error (*ir.StorageError), never a rejection, so callers can tell "no" from
// "could not evaluate".
//
// Only one hop is checked. When C supersedes B which superseded A, C is
// judged against B alone; B's own acceptance was settled when B was appended.
package validate
