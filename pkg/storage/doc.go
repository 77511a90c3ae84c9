// Package storage lays out the local course mirror.
//
// Files live under root/<course>/<section>/<name>. Directories are created
// lazily on the first write into them, and writes go through a temporary
// file renamed into place. Whether a file exists at its final path is the
// only record of what has already been synced; there is no index or
// database.
//
// Usage:
//
//	m, err := storage.NewManager("/srv/lms", false)
//	if err != nil {
//	    return err
//	}
//	dir := m.Dir("CS F111 Computer Programming", "Lectures")
//	if !m.Exists(dir, "notes.pdf") {
//	    _, err = m.Save(body, dir, "notes.pdf")
//	}
package storage
