// Package itemstore persists an ordered collection of records in a
// directory that several processes may share.
//
// Each record is a file named after its id. The order of records is
// kept in a separate index file, "uuids", holding 16 raw bytes per id.
// All reads happen under a shared lock and all writes under an
// exclusive lock on the directory (see package coord).
//
// Saves are incremental: only records marked dirty are encoded and
// written, the index is always rewritten. Save requests made while a
// save runs collapse into a single follow-up save.
//
// A failure that makes the directory untrustworthy (corrupt index,
// lock failure while loading) breaks the store: from then on it does
// no disk I/O and the process has to be restarted.
package itemstore
