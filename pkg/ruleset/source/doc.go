// Package source loads rules documents for the decisioning engine.
//
// A Source returns the decoded rules.json object. HTTPSource downloads the
// artifact published for a property, FileSource reads a local file and
// MemorySource serves a fixed document in tests.
//
// # Refresh
//
// A Poller reloads a source on a fixed interval and hands the document to a
// Loader such as *engine.Engine:
//
//	poller := source.NewPoller(src, eng, time.Minute, logger)
//	if err := poller.Start(ctx); err != nil {
//		return err
//	}
//	defer poller.Stop()
//
// A Watcher reloads a FileSource whenever the file changes on disk.
package source
