// Package git checks whether protected files are exposed through a git
// repository.
//
// Shredding removes the working copy only. A file tracked by git keeps its
// plaintext in the object store and history, and a file outside .gitignore
// may be committed once restored. Both cases are reported so the user can
// act on them.
package git
