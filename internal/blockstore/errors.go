package blockstore

import "errors"

// MaxSizeError is returned by WriteAt for a non-circular file whose write
// would exceed FileInfo.Opts.MaxSize. Circular files never return it — the
// same condition instead triggers wrap-around.
var MaxSizeError = errors.New("blockstore: write exceeds file max size")

// ErrFileExists is returned by MakeFile when (blockId, name) already has a
// row.
var ErrFileExists = errors.New("blockstore: file already exists")

// ErrFileNotFound is returned by operations addressing a (blockId, name)
// that has no row.
var ErrFileNotFound = errors.New("blockstore: file not found")

// errCacheEntryMissing is a corruption-class error: Stat is supposed to
// always populate a cache entry before returning, so callers that find one
// absent afterward have hit a programming error, not a normal condition.
var errCacheEntryMissing = errors.New("blockstore: cache entry not found after stat")

// errReadPastEnd is returned by ReadAt when off is beyond the file's
// current size (non-circular files only; circular files wrap instead).
var errReadPastEnd = errors.New("blockstore: tried to read past the end of the file")
