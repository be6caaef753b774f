// Package watcher logs filesystem changes below a directory.
//
// fsnotify subscriptions are per directory, so Watch walks the tree at start
// and subscribes every directory it finds, then subscribes new directories as
// their creation events arrive. Each change is logged as one line carrying
// its type (created, modified, deleted or moved) and absolute path. There is
// no filtering or debouncing.
package watcher
